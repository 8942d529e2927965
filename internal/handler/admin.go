package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// AdminHandler handles the admin panel: stats, grants, the dynamic admin
// list, the Stars rate and withdraw approvals. Access is enforced by the
// admin middleware in the bot package.
type AdminHandler struct {
	accounts *service.AccountService
	payments *service.PaymentService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *service.AccountService, payments *service.PaymentService) *AdminHandler {
	return &AdminHandler{accounts: accounts, payments: payments}
}

// HandleAdmin handles the /admin command: system stats plus a crib of the
// admin commands.
func (h *AdminHandler) HandleAdmin(c tele.Context) error {
	stats, err := h.accounts.SystemStats(context.Background())
	if err != nil {
		return c.Reply(errText(err))
	}

	return c.Reply(fmt.Sprintf(
		"📊 Система\n\n"+
			"👥 Игроков: %d\n"+
			"🎲 Ставок: %d на %s\n"+
			"💰 Суммарный баланс: %s\n"+
			"📥 Депозитов: %s\n"+
			"📤 Выведено: %s\n\n"+
			"Команды:\n"+
			"/grant <id|@username> <сумма> — начислить\n"+
			"/withdrawals — заявки на вывод\n"+
			"/admin_add <id>, /admin_del <id>, /admins\n"+
			"/stars_rate [курс] — курс Stars\n"+
			"/top — топ балансов",
		stats.Users,
		stats.Bets, money.Format(stats.TotalWagered),
		money.Format(stats.TotalBalance),
		money.Format(stats.TotalDeposited),
		money.Format(stats.TotalWithdrawn),
	))
}

// HandleGrant handles the /grant command.
// Format: /grant <user_id|@username> <amount>.
func (h *AdminHandler) HandleGrant(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Использование: /grant <user_id|@username> <сумма>")
	}

	target, err := h.accounts.ResolveUser(context.Background(), args[0])
	if err != nil {
		return c.Reply(errText(err))
	}
	amount, err := parseStake(args[1])
	if err != nil || !amount.IsPositive() {
		return c.Reply("❌ Недопустимая сумма")
	}

	if err := h.accounts.Grant(context.Background(), c.Sender().ID, target.ID, amount); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("✅ Начислено %s пользователю %d", money.Format(amount), target.ID))
}

// HandleTop handles the /top command.
func (h *AdminHandler) HandleTop(c tele.Context) error {
	users, err := h.accounts.ListBalances(context.Background(), 10)
	if err != nil {
		return c.Reply(errText(err))
	}

	var b strings.Builder
	b.WriteString("🏆 Топ балансов:\n\n")
	for i, user := range users {
		name := strconv.FormatInt(user.ID, 10)
		if user.Username != nil && *user.Username != "" {
			name = "@" + *user.Username
		}
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, name, money.Format(user.Balance))
	}
	return c.Reply(b.String())
}

// HandleAdminAdd handles the /admin_add command.
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	targetID, err := h.idArg(c, "/admin_add <user_id>")
	if err != nil {
		return nil
	}

	added, err := h.accounts.AddAdmin(context.Background(), targetID)
	if err != nil {
		return c.Reply(errText(err))
	}
	if !added {
		return c.Reply("Пользователь уже администратор")
	}
	return c.Reply(fmt.Sprintf("✅ %d теперь администратор", targetID))
}

// HandleAdminDel handles the /admin_del command.
func (h *AdminHandler) HandleAdminDel(c tele.Context) error {
	targetID, err := h.idArg(c, "/admin_del <user_id>")
	if err != nil {
		return nil
	}

	removed, err := h.accounts.RemoveAdmin(context.Background(), targetID)
	if err != nil {
		return c.Reply(errText(err))
	}
	if !removed {
		return c.Reply("Пользователь не в динамическом списке")
	}
	return c.Reply(fmt.Sprintf("✅ %d больше не администратор", targetID))
}

// HandleAdmins handles the /admins command.
func (h *AdminHandler) HandleAdmins(c tele.Context) error {
	ids, err := h.accounts.Admins(context.Background())
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(ids) == 0 {
		return c.Reply("Динамический список администраторов пуст")
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return c.Reply("👮 Администраторы: " + strings.Join(parts, ", "))
}

// HandleStarsRate handles the /stars_rate command: without an argument it
// shows the current rate, with one it stores the override.
func (h *AdminHandler) HandleStarsRate(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("⭐ Текущий курс: 1 Star = $%s", h.payments.StarsRate(ctx).String()))
	}

	rate, err := money.FromString(args[0])
	if err != nil || !rate.IsPositive() {
		return c.Reply("❌ Курс — положительное число, например 0.017")
	}

	if err := h.payments.SetStarsRate(ctx, rate); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("✅ Курс обновлён: 1 Star = $%s", rate.String()))
}

// HandleWithdrawals handles the /withdrawals command: each pending request
// gets its own message with approve/reject buttons.
func (h *AdminHandler) HandleWithdrawals(c tele.Context) error {
	pending, err := h.payments.PendingWithdrawals(context.Background(), 20)
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(pending) == 0 {
		return c.Reply("📭 Нет заявок на вывод")
	}

	for _, request := range pending {
		markup := &tele.ReplyMarkup{}
		markup.Inline(markup.Row(
			markup.Data("✅ Одобрить", cbJoin("wd", "approve", strconv.FormatInt(request.ID, 10))),
			markup.Data("❌ Отклонить", cbJoin("wd", "reject", strconv.FormatInt(request.ID, 10))),
		))

		if err := c.Send(h.formatRequest(request), markup); err != nil {
			return err
		}
	}
	return nil
}

// HandleWithdrawCallback decides one request.
// Callback data: wd|approve|<id> or wd|reject|<id>.
func (h *AdminHandler) HandleWithdrawCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 3 {
		return c.Respond(&tele.CallbackResponse{})
	}

	requestID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{})
	}

	ctx := context.Background()
	adminID := c.Sender().ID

	var request *model.Transaction
	var verdict string
	switch parts[1] {
	case "approve":
		request, err = h.payments.ApproveWithdraw(ctx, requestID, adminID)
		verdict = "✅ Одобрена"
	case "reject":
		request, err = h.payments.RejectWithdraw(ctx, requestID, adminID)
		verdict = "❌ Отклонена, средства возвращены"
	default:
		return c.Respond(&tele.CallbackResponse{})
	}
	if err != nil {
		return respondErr(c, err)
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("request_id", requestID).
		Str("decision", parts[1]).
		Msg("withdraw request decided")

	if err := c.Edit(h.formatRequest(request) + "\n\n" + verdict); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{})
}

// formatRequest renders one withdraw request for the admin panel.
func (h *AdminHandler) formatRequest(request *model.Transaction) string {
	var details model.WithdrawDetails
	if len(request.Details) > 0 {
		_ = json.Unmarshal(request.Details, &details)
	}

	return fmt.Sprintf(
		"📤 Заявка #%d\n👤 Пользователь: %d\n💰 Сумма: %s\n📍 Адрес: %s",
		request.ID, request.UserID, money.Format(request.Amount.Neg()), details.Address)
}

// idArg parses a single user-id argument.
func (h *AdminHandler) idArg(c tele.Context, usage string) (int64, error) {
	args := c.Args()
	if len(args) < 1 {
		_ = c.Reply("Использование: " + usage)
		return 0, fmt.Errorf("missing argument")
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		_ = c.Reply("❌ ID пользователя — число")
		return 0, err
	}
	return targetID, nil
}
