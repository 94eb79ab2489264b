package strata

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
)

var (
	// ErrNoData is returned when a codec cannot produce bytes for a value.
	ErrNoData = errors.New("strata: codec produced no data")

	// ErrDecode is returned when a codec cannot reconstruct a value from bytes.
	ErrDecode = errors.New("strata: payload decode failed")

	// ErrFetchFailed wraps errors raised by the user-supplied fetch callback.
	ErrFetchFailed = errors.New("strata: fetch failed")
)

// Reporter receives errors the cache swallows instead of propagating:
// local I/O failures, decode failures treated as misses, and best-effort
// remote writes. Reporters must not block.
type Reporter func(err error, context string)

// defaultReporter logs swallowed errors to stderr.
func defaultReporter() Reporter {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "strata").Logger()
	return func(err error, context string) {
		log.Error().Err(err).Msg(context)
	}
}
