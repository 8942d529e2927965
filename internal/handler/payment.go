package handler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// defaultDepositAmount is offered when /deposit is called without one.
const defaultDepositAmount = "10"

// PaymentHandler handles deposits (crypto invoices and Telegram Stars)
// and withdraw requests.
type PaymentHandler struct {
	payments *service.PaymentService
	cfg      *config.Config
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{payments: payments, cfg: cfg}
}

// HandleDeposit handles the /deposit command and the deposit button.
func (h *PaymentHandler) HandleDeposit(c tele.Context) error {
	amount := defaultDepositAmount
	// For the deposit button Args would split the callback data; only the
	// command form carries an amount argument.
	if c.Callback() == nil {
		if args := c.Args(); len(args) >= 1 {
			parsed, err := parseStake(args[0])
			if err != nil || !parsed.IsPositive() {
				return c.Reply("❌ Укажите сумму, например: /deposit 25")
			}
			amount = parsed.String()
		}
	}

	markup := &tele.ReplyMarkup{}
	var row tele.Row
	for _, asset := range h.cfg.Payment.Assets {
		row = append(row, markup.Data(asset, cbJoin("dep", asset, amount)))
	}
	markup.Inline(row, markup.Row(markup.Data("⭐ Telegram Stars", cbJoin("dep", "stars", amount))))

	text := fmt.Sprintf("💳 Пополнение на %s\n\nВыберите способ оплаты:", money.Format(decimal.RequireFromString(amount)))
	if c.Callback() != nil {
		if err := c.Edit(text, markup); err == nil {
			return c.Respond(&tele.CallbackResponse{})
		}
	}
	return c.Send(text, markup)
}

// HandleDepositCallback issues the invoice for the chosen payment method.
// Callback data: dep|<asset>|<amount> or dep|stars|<amount>.
func (h *PaymentHandler) HandleDepositCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 3 {
		return c.Respond(&tele.CallbackResponse{})
	}
	method := parts[1]

	amount, err := money.FromString(parts[2])
	if err != nil || !amount.IsPositive() {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Недопустимая сумма"})
	}

	if method == "stars" {
		return h.sendStarsInvoice(c, amount)
	}
	return h.sendCryptoInvoice(c, method, amount)
}

// sendCryptoInvoice creates a gateway invoice and replies with the pay link.
func (h *PaymentHandler) sendCryptoInvoice(c tele.Context, asset string, amount decimal.Decimal) error {
	invoice, err := h.payments.CreateDeposit(context.Background(), c.Sender().ID, asset, amount)
	if err != nil {
		return respondErr(c, err)
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.URL("💳 Оплатить", invoice.PayURL)))

	text := fmt.Sprintf("🧾 Счёт на %s %s\n\nПосле оплаты баланс пополнится автоматически.",
		invoice.Amount.StringFixed(2), invoice.Asset)
	if err := c.Edit(text, markup); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{})
}

// sendStarsInvoice sends a Telegram Stars invoice for the USD amount at
// the current exchange rate.
func (h *PaymentHandler) sendStarsInvoice(c tele.Context, amount decimal.Decimal) error {
	rate := h.payments.StarsRate(context.Background())
	stars := amount.Div(rate).Ceil().IntPart()
	if stars <= 0 {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Недопустимая сумма"})
	}

	invoice := &tele.Invoice{
		Title:       "Пополнение баланса",
		Description: fmt.Sprintf("Пополнение на %s", money.Format(amount)),
		Payload:     fmt.Sprintf("stars-deposit:%d", c.Sender().ID),
		Currency:    "XTR",
		Prices:      []tele.Price{{Label: "Пополнение", Amount: int(stars)}},
	}

	if _, err := c.Bot().Send(c.Chat(), invoice); err != nil {
		log.Error().Err(err).Int64("user_id", c.Sender().ID).Msg("failed to send stars invoice")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Не удалось выставить счёт"})
	}
	return c.Respond(&tele.CallbackResponse{})
}

// HandleCheckout confirms a pre-checkout query. Stars invoices carry no
// stock to verify, so every query is accepted.
func (h *PaymentHandler) HandleCheckout(c tele.Context) error {
	return c.Accept()
}

// HandlePayment credits a successful Telegram Stars payment. The charge
// id keys the credit, so a redelivered update cannot double-credit.
func (h *PaymentHandler) HandlePayment(c tele.Context) error {
	payment := c.Message().Payment
	if payment == nil || payment.Currency != "XTR" {
		return nil
	}

	amount, err := h.payments.ApplyStarsPayment(
		context.Background(), c.Sender().ID, int64(payment.Total), payment.TelegramChargeID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", c.Sender().ID).Msg("failed to apply stars payment")
		return c.Reply("❌ Платёж получен, но зачисление не удалось. Обратитесь в поддержку")
	}

	return c.Reply(fmt.Sprintf("✅ Баланс пополнен на %s", money.Format(amount)))
}

// HandleWithdraw handles the /withdraw command.
// Format: /withdraw <amount> <address>.
func (h *PaymentHandler) HandleWithdraw(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Использование: /withdraw <сумма> <адрес>\nНапример: /withdraw 25 UQabc...")
	}

	amount, err := parseStake(args[0])
	if err != nil {
		return c.Reply("❌ Недопустимая сумма")
	}

	request, err := h.payments.RequestWithdraw(context.Background(), c.Sender().ID, amount, args[1])
	if err != nil {
		return c.Reply(errText(err))
	}

	// Small amounts are paid out instantly and skip the approval queue.
	if request.Status == model.TxCompleted {
		return c.Reply(fmt.Sprintf("✅ Вывод %s отправлен", money.Format(amount)))
	}

	return c.Reply(fmt.Sprintf(
		"📤 Заявка #%d на вывод %s создана.\nСредства зарезервированы и будут отправлены после проверки.",
		request.ID, money.Format(amount)))
}
