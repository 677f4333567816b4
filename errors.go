package mongopersistence

import "errors"

// ErrInvalidConfiguration is the base sentinel for constructor and
// configuration-time argument errors across all three stores (missing
// database name, lease shorter than the poll tick, batch size <= 0,
// index-declaration variation greater than its interval, and so on).
// Package-specific errors wrap this sentinel with
// fmt.Errorf("...: %w", mongopersistence.ErrInvalidConfiguration) so
// callers can test with a single
// errors.Is(err, mongopersistence.ErrInvalidConfiguration) regardless of
// which store raised it.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// IsInvalidConfiguration reports whether err (or anything it wraps) is a
// configuration error raised by any store in this module.
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
