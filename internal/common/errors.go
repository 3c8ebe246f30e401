package common

import "errors"

// Recoverable conditions are logged and absorbed by the caller;
// structural errors are surfaced; internal invariant violations are
// fatal.
var (
	// activity_type not in {1,3,4}.
	ErrUnknownActivity = errors.New("unknown activity type")
	// side not in {'B','S'}.
	ErrInvalidSide = errors.New("invalid side")
	// cancel or modify attempted on a market order.
	ErrInvalidOperation = errors.New("invalid operation on market order")
	// referenced order_number is not resting.
	ErrOrderMissing = errors.New("order not found")
	// modify references an unknown order_number.
	ErrModifyUnmatched = errors.New("modify references unknown order")
	// internal bug, e.g. empty level found live.
	ErrBookInvariantViolation = errors.New("book invariant violation")

	ErrLevelExists  = errors.New("price level already exists")
	ErrLevelMissing = errors.New("price level does not exist")
)
