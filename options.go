package strata

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/meigma/strata/remote"
)

// Default tier limits.
const (
	DefaultMemoryLimit int64 = 100 << 20
	DefaultDiskLimit   int64 = 1 << 30
)

// settings holds construction-time configuration.
type settings struct {
	location    string
	memLimit    int64
	diskLimit   int64
	remote      *remote.Config
	reporter    Reporter
	digestNames bool
	logger      zerolog.Logger
	now         func() time.Time
}

func defaultSettings() settings {
	return settings{
		memLimit: DefaultMemoryLimit,
		diskLimit: DefaultDiskLimit,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
}

// Option configures a Cache.
type Option func(*settings)

// WithLocation sets the on-disk root directory. Without it the disk tier is
// disabled. The directory is owned exclusively by one cache instance.
func WithLocation(dir string) Option {
	return func(s *settings) { s.location = dir }
}

// WithMemoryLimit sets the memory tier's cost ceiling. Defaults to 100 MiB.
// Use 0 to disable the limit.
func WithMemoryLimit(n int64) Option {
	return func(s *settings) { s.memLimit = n }
}

// WithDiskLimit sets the disk tier's byte ceiling. Defaults to 1 GiB.
// Use 0 to disable the limit.
func WithDiskLimit(n int64) Option {
	return func(s *settings) { s.diskLimit = n }
}

// WithRemote enables the remote tier.
func WithRemote(cfg remote.Config) Option {
	return func(s *settings) { s.remote = &cfg }
}

// WithReporter sets the hook receiving swallowed errors. Defaults to a
// stderr logger.
func WithReporter(fn Reporter) Option {
	return func(s *settings) { s.reporter = fn }
}

// WithDigestNames selects collision-free digest filenames for the disk
// tier instead of sanitized printable keys.
func WithDigestNames() Option {
	return func(s *settings) { s.digestNames = true }
}

// WithLogger sets the logger used for eviction summaries. Disabled by
// default.
func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) { s.logger = log }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(fn func() time.Time) Option {
	return func(s *settings) { s.now = fn }
}
