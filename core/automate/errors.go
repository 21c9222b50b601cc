package automate

import (
	"errors"
)

var (
	// ErrTriggerNotFound is returned when a referenced trigger is absent.
	// Fatal for the enclosing task, never retried automatically.
	ErrTriggerNotFound = errors.New("trigger not found")

	ErrConditionNotFound = errors.New("condition not found")
	ErrActionNotFound    = errors.New("action not found")
	ErrWalletNotFound    = errors.New("wallet not found")

	// ErrForeignWallet is returned when a mutation references a wallet the
	// acting user does not own
	ErrForeignWallet = errors.New("foreign wallet")

	// ErrTypeNotRegistered is a configuration fault: a stored condition or
	// action names a strategy type nothing registered an implementation for
	ErrTypeNotRegistered = errors.New("strategy type not registered")
)
