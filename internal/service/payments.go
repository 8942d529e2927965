package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"casino-bot/internal/config"
	"casino-bot/internal/metrics"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/payment"
	"casino-bot/internal/repository"
)

// starsRateKey is the app setting that overrides the configured Telegram
// Stars exchange rate at runtime.
const starsRateKey = "stars_usd_rate"

// paymentGateway is the slice of the CryptoPay client the service needs.
type paymentGateway interface {
	CreateInvoice(ctx context.Context, asset string, amount decimal.Decimal, payload string) (*payment.Invoice, error)
	Transfer(ctx context.Context, userID int64, asset string, amount decimal.Decimal, spendID string) error
}

// PaymentService handles deposits (crypto invoices and Telegram Stars)
// and the withdraw request lifecycle.
type PaymentService struct {
	gateway  paymentGateway
	invoices *repository.InvoiceRepository
	ledger   *repository.LedgerRepository
	users    *repository.UserRepository
	settings *repository.SettingsRepository
	cfg      *config.Config
	log      zerolog.Logger
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(
	gateway paymentGateway,
	invoices *repository.InvoiceRepository,
	ledger *repository.LedgerRepository,
	users *repository.UserRepository,
	settings *repository.SettingsRepository,
	cfg *config.Config,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:  gateway,
		invoices: invoices,
		ledger:   ledger,
		users:    users,
		settings: settings,
		cfg:      cfg,
		log:      log.With().Str("component", "payments").Logger(),
	}
}

// CreateDeposit issues a gateway invoice and records it for the watcher.
func (s *PaymentService) CreateDeposit(ctx context.Context, userID int64, asset string, amount decimal.Decimal) (*model.Invoice, error) {
	amount = money.Quantize(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount %s", repository.ErrInvalidWager, amount)
	}

	payload := fmt.Sprintf("deposit:%d", userID)
	remote, err := s.gateway.CreateInvoice(ctx, asset, amount, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway invoice: %w", err)
	}

	invoice, err := s.invoices.Create(ctx, userID, remote.InvoiceID, asset, amount, remote.PayURL, &payload)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Int64("invoice_id", remote.InvoiceID).
		Str("asset", asset).
		Str("amount", amount.String()).
		Msg("deposit invoice created")

	return invoice, nil
}

// StarsRate returns the Telegram Stars exchange rate: the runtime setting
// when present, else the configured fallback.
func (s *PaymentService) StarsRate(ctx context.Context) decimal.Decimal {
	raw, err := s.settings.Get(ctx, starsRateKey)
	if err == nil {
		if rate, parseErr := decimal.NewFromString(raw); parseErr == nil && rate.IsPositive() {
			return rate
		}
	}
	return s.cfg.StarsUSDRate()
}

// SetStarsRate stores a runtime override for the Stars exchange rate.
func (s *PaymentService) SetStarsRate(ctx context.Context, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: stars rate %s", repository.ErrInvalidWager, rate)
	}
	return s.settings.Set(ctx, starsRateKey, rate.String())
}

// ApplyStarsPayment credits a successful Telegram Stars payment, exactly
// once per charge id.
func (s *PaymentService) ApplyStarsPayment(ctx context.Context, userID int64, stars int64, chargeID string) (decimal.Decimal, error) {
	amount := money.Quantize(decimal.NewFromInt(stars).Mul(s.StarsRate(ctx)))
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %d stars convert to %s", repository.ErrInvalidWager, stars, amount)
	}

	externalID := "stars:" + chargeID
	credited, err := s.ledger.CreditOnce(ctx, userID, model.TxKindDeposit, amount, externalID, model.DepositDetails{Asset: "XTR"})
	if err != nil {
		return decimal.Zero, err
	}
	if credited {
		metrics.DepositsCredited.Inc()
		s.log.Info().
			Int64("user_id", userID).
			Int64("stars", stars).
			Str("amount", amount.String()).
			Msg("stars deposit credited")
	}

	return amount, nil
}

// RequestWithdraw reserves the amount and opens a pending request.
// Amounts at or below the configured auto limit skip the approval queue
// and pay out immediately.
func (s *PaymentService) RequestWithdraw(ctx context.Context, userID int64, amount decimal.Decimal, address string) (*model.Transaction, error) {
	amount = money.Quantize(amount)

	limit := s.cfg.AutoWithdrawLimit()
	if limit.IsPositive() && amount.IsPositive() && amount.LessThanOrEqual(limit) {
		return s.processInstant(ctx, userID, amount)
	}

	request, err := s.ledger.CreateWithdrawRequest(ctx, userID, amount, address)
	if err != nil {
		return nil, err
	}
	metrics.WithdrawRequests.WithLabelValues("requested").Inc()
	return request, nil
}

// processInstant debits and journals the withdrawal in one transaction,
// then fires the gateway payout keyed by the journal row. The gateway
// pays the Telegram user directly, so no address is involved.
func (s *PaymentService) processInstant(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Transaction, error) {
	externalID := "auto:" + uuid.NewString()
	withdrawal, err := s.ledger.ProcessWithdrawal(ctx, userID, amount, s.cfg.Payment.DefaultAsset, externalID)
	if err != nil {
		return nil, err
	}
	metrics.WithdrawRequests.WithLabelValues("auto").Inc()

	spendID := fmt.Sprintf("withdrawal:%d", withdrawal.ID)
	if err := s.gateway.Transfer(ctx, userID, s.cfg.Payment.DefaultAsset, amount, spendID); err != nil {
		// The debit stands; the payout is retried manually under the
		// same spend id.
		s.log.Error().Err(err).Int64("tx_id", withdrawal.ID).Msg("gateway transfer failed")
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("amount", amount.String()).
		Msg("instant withdrawal processed")

	return withdrawal, nil
}

// ApproveWithdraw completes a pending request and pays it out through the
// gateway. The transfer's spend id is derived from the request id, so a
// retried approval cannot double-pay.
func (s *PaymentService) ApproveWithdraw(ctx context.Context, requestID, adminID int64) (*model.Transaction, error) {
	request, err := s.ledger.ApproveWithdrawRequest(ctx, requestID, adminID)
	if err != nil {
		return nil, err
	}
	metrics.WithdrawRequests.WithLabelValues("approved").Inc()

	amount := request.Amount.Neg()
	spendID := fmt.Sprintf("withdraw:%d", requestID)
	if err := s.gateway.Transfer(ctx, request.UserID, s.cfg.Payment.DefaultAsset, amount, spendID); err != nil {
		// The request stays completed; the payout is retried manually.
		s.log.Error().Err(err).Int64("request_id", requestID).Msg("gateway transfer failed")
	}

	return request, nil
}

// RejectWithdraw rejects a pending request and refunds the reservation.
func (s *PaymentService) RejectWithdraw(ctx context.Context, requestID, adminID int64) (*model.Transaction, error) {
	request, err := s.ledger.RejectWithdrawRequest(ctx, requestID, adminID)
	if err != nil {
		return nil, err
	}
	metrics.WithdrawRequests.WithLabelValues("rejected").Inc()
	return request, nil
}

// PendingWithdrawals lists open requests for the admin panel.
func (s *PaymentService) PendingWithdrawals(ctx context.Context, limit int) ([]*model.Transaction, error) {
	return s.ledger.ListPendingWithdrawals(ctx, limit)
}
