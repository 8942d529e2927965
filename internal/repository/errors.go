package repository

import "errors"

// Common errors for repository operations.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds is returned when a debit would take the balance
	// below zero. No rows are written when this happens.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidWager is returned for non-positive or out-of-bounds stakes.
	ErrInvalidWager = errors.New("invalid wager")

	// ErrAlreadyProcessed is returned when a state transition targets a row
	// that already left the expected status.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrActiveSession is returned when a user already has a live
	// multi-step round.
	ErrActiveSession = errors.New("active session exists")
)
