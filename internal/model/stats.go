package model

import "github.com/shopspring/decimal"

// ProfileStats is the aggregate view behind the profile screen.
type ProfileStats struct {
	User      *User
	BetsWon   int64
	BetsLost  int64
	NetResult decimal.Decimal
}

// SystemStats is the aggregate view behind the admin panel.
type SystemStats struct {
	Users          int64
	Bets           int64
	TotalWagered   decimal.Decimal
	TotalBalance   decimal.Decimal
	TotalDeposited decimal.Decimal
	TotalWithdrawn decimal.Decimal
}
