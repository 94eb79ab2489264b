package strata

import "time"

// Freshness constrains which cached entries a read is willing to accept.
//
// The zero value accepts any entry. Constraints are added with MaxAge and
// NewerThan and combine conjunctively:
//
//	v, ok := cache.Get(key, strata.Freshness{}.MaxAge(time.Minute))
//
// A MaxAge of zero rejects every entry, as does a NewerThan instant in the
// future.
type Freshness struct {
	maxAge    time.Duration
	hasMaxAge bool
	newerThan time.Time
}

// MaxAge returns a copy of f that additionally rejects entries cached more
// than d ago.
func (f Freshness) MaxAge(d time.Duration) Freshness {
	f.maxAge = d
	f.hasMaxAge = true
	return f
}

// NewerThan returns a copy of f that additionally rejects entries cached
// before t.
func (f Freshness) NewerThan(t time.Time) Freshness {
	f.newerThan = t
	return f
}

// passes reports whether an entry cached at cachedAt satisfies f at now.
func (f Freshness) passes(cachedAt, now time.Time) bool {
	if !f.newerThan.IsZero() && cachedAt.Before(f.newerThan) {
		return false
	}
	if f.hasMaxAge {
		if f.maxAge <= 0 {
			return false
		}
		age := now.Sub(cachedAt)
		if age < 0 {
			age = -age
		}
		if age > f.maxAge {
			return false
		}
	}
	return true
}
