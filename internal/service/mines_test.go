package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"casino-bot/internal/config"
	"casino-bot/internal/game/mines"
)

// A bad mine count must be rejected before any money moves. The service
// here has no repositories wired, so reaching the wager path would panic
// instead of merely failing the assertion.
func TestMinesStartValidatesCountFirst(t *testing.T) {
	svc := NewMinesService(nil, nil, nil, &config.Config{})

	for _, count := range []int{-1, 0, 25, 30} {
		_, err := svc.Start(context.Background(), 1, decimal.NewFromInt(10), count)
		assert.ErrorIs(t, err, mines.ErrInvalidMines, "count %d", count)
	}
}
