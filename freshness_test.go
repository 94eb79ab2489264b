package strata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFreshnessPasses(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		fresh    Freshness
		cachedAt time.Time
		want     bool
	}{
		{
			name:     "no constraints always passes",
			fresh:    Freshness{},
			cachedAt: now.Add(-24 * time.Hour),
			want:     true,
		},
		{
			name:     "max age zero always fails",
			fresh:    Freshness{}.MaxAge(0),
			cachedAt: now,
			want:     false,
		},
		{
			name:     "within max age",
			fresh:    Freshness{}.MaxAge(time.Hour),
			cachedAt: now.Add(-30 * time.Minute),
			want:     true,
		},
		{
			name:     "past max age",
			fresh:    Freshness{}.MaxAge(time.Hour),
			cachedAt: now.Add(-2 * time.Hour),
			want:     false,
		},
		{
			name:     "newer than in the past",
			fresh:    Freshness{}.NewerThan(now.Add(-time.Hour)),
			cachedAt: now.Add(-time.Minute),
			want:     true,
		},
		{
			name:     "newer than in the future always fails",
			fresh:    Freshness{}.NewerThan(now.Add(time.Hour)),
			cachedAt: now,
			want:     false,
		},
		{
			name:     "cached before newer than",
			fresh:    Freshness{}.NewerThan(now.Add(-time.Minute)),
			cachedAt: now.Add(-time.Hour),
			want:     false,
		},
		{
			name:     "combined constraints both pass",
			fresh:    Freshness{}.MaxAge(time.Hour).NewerThan(now.Add(-time.Hour)),
			cachedAt: now.Add(-time.Minute),
			want:     true,
		},
		{
			name:     "combined constraints max age fails",
			fresh:    Freshness{}.MaxAge(time.Minute).NewerThan(now.Add(-time.Hour)),
			cachedAt: now.Add(-30 * time.Minute),
			want:     false,
		},
		{
			name:     "future cached at within max age magnitude",
			fresh:    Freshness{}.MaxAge(time.Hour),
			cachedAt: now.Add(30 * time.Minute),
			want:     true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.fresh.passes(tt.cachedAt, now))
		})
	}
}
