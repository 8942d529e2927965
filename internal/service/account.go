package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"casino-bot/internal/config"
	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

// AccountService handles user accounts, the welcome bonus and referrals.
type AccountService struct {
	users    *repository.UserRepository
	ledger   *repository.LedgerRepository
	settings *repository.SettingsRepository
	cfg      *config.Config
	log      zerolog.Logger
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	users *repository.UserRepository,
	ledger *repository.LedgerRepository,
	settings *repository.SettingsRepository,
	cfg *config.Config,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		users:    users,
		ledger:   ledger,
		settings: settings,
		cfg:      cfg,
		log:      log.With().Str("component", "account").Logger(),
	}
}

// EnsureUser ensures the account exists, binding the referrer on first
// contact and granting the welcome bonus at most once per user.
func (s *AccountService) EnsureUser(ctx context.Context, userID int64, username, firstName *string, referralPayload string) (*model.User, bool, error) {
	user, created, err := s.users.EnsureUser(ctx, userID, username, firstName, referralPayload)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	bonus := s.cfg.WelcomeBonus()
	if created && bonus.IsPositive() {
		externalID := fmt.Sprintf("welcome:%d", userID)
		credited, err := s.ledger.CreditOnce(ctx, userID, model.TxKindWelcomeBonus, bonus, externalID, nil)
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", userID).Msg("failed to grant welcome bonus")
		} else if credited {
			user.Balance = user.Balance.Add(bonus)
		}
	}

	return user, created, nil
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ResolveUser looks a user up by numeric id or @username, the two ways
// admin commands reference players.
func (s *AccountService) ResolveUser(ctx context.Context, ref string) (*model.User, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.users.GetByID(ctx, id)
	}
	return s.users.GetByUsername(ctx, ref)
}

// Profile returns the user's profile aggregates.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*model.ProfileStats, error) {
	return s.users.Profile(ctx, userID)
}

// ReferralLink builds the user's personal invite link.
func (s *AccountService) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", s.cfg.Bot.Username, userID)
}

// ReferralStats returns the invited-user count and lifetime earnings.
func (s *AccountService) ReferralStats(ctx context.Context, userID int64) (int64, decimal.Decimal, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, decimal.Zero, err
	}

	count, err := s.users.ReferralCount(ctx, userID)
	if err != nil {
		return 0, decimal.Zero, err
	}

	return count, user.ReferralEarnings, nil
}

// Grant credits a user from the admin panel.
func (s *AccountService) Grant(ctx context.Context, adminID, userID int64, amount decimal.Decimal) error {
	if err := s.ledger.Credit(ctx, userID, model.TxKindAdminGrant, amount, nil); err != nil {
		return err
	}
	s.log.Info().
		Int64("admin_id", adminID).
		Int64("user_id", userID).
		Str("amount", amount.String()).
		Msg("admin grant")
	return nil
}

// SystemStats returns the aggregates for the admin panel.
func (s *AccountService) SystemStats(ctx context.Context) (*model.SystemStats, error) {
	return s.users.SystemStats(ctx)
}

// ListBalances returns the top accounts by balance.
func (s *AccountService) ListBalances(ctx context.Context, limit int) ([]*model.User, error) {
	return s.users.ListBalances(ctx, limit)
}

// IsAdmin checks the static allow-list and then the dynamic one.
func (s *AccountService) IsAdmin(ctx context.Context, userID int64) bool {
	if s.cfg.IsAdmin(userID) {
		return true
	}
	dynamic, err := s.settings.IsAdmin(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("failed to check dynamic admin")
		return false
	}
	return dynamic
}

// AddAdmin grants dynamic admin rights.
func (s *AccountService) AddAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.settings.AddAdmin(ctx, userID)
}

// RemoveAdmin revokes dynamic admin rights.
func (s *AccountService) RemoveAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.settings.RemoveAdmin(ctx, userID)
}

// Admins lists dynamic admins.
func (s *AccountService) Admins(ctx context.Context) ([]int64, error) {
	return s.settings.Admins(ctx)
}
