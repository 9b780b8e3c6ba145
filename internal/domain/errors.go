package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrLockHeld       = errors.New("lock already held")
	ErrInvalidBetType = errors.New("invalid bet type")

	// ErrDataAbsent marks a missing outcome, market or variant. The affected
	// unit is skipped.
	ErrDataAbsent = errors.New("data absent")
	// ErrDataMalformed marks a non-numeric or out-of-range point or price.
	// The affected variant or event is skipped.
	ErrDataMalformed = errors.New("data malformed")
	// ErrIndexStale is reported when the outcome index is read before its
	// first rebuild. Callers treat it like ErrDataAbsent.
	ErrIndexStale = errors.New("outcome index not built")
	// ErrStoreUnavailable aborts the current scan.
	ErrStoreUnavailable = errors.New("market store unavailable")
)

// IsAbsent reports whether err means "nothing to scan here".
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDataAbsent) || errors.Is(err, ErrIndexStale)
}
