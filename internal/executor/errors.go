package executor

import "errors"

var (
	// ErrZeroAmount rejects a trade whose computed amount rounds to zero.
	ErrZeroAmount = errors.New("computed trade amount is zero")

	// ErrInsufficientBalance rejects a sell exceeding the held balance.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrExpired marks a buy abandoned because the window between event
	// observation and broadcast readiness passed.
	ErrExpired = errors.New("trade expired before broadcast")

	// ErrNoPool means no pool is known for the mint on the execution venue.
	ErrNoPool = errors.New("no pool known for mint")
)
