package strata

import (
	"sort"
	"time"
)

// memEntry is one value held by the memory tier.
type memEntry[V any] struct {
	value      V
	cost       int64
	cachedAt   time.Time
	accessedAt time.Time
	seq        int64 // insertion order, breaks accessedAt ties on purge
}

// memTier holds decoded payloads with cost accounting and LRU eviction.
// Callers must serialize access; the cache core guards it with one mutex so
// cross-tier invariants hold on promotion and write paths.
type memTier[K comparable, V any] struct {
	entries map[K]*memEntry[V]
	total   int64
	limit   int64
	seq     int64
}

func newMemTier[K comparable, V any](limit int64) *memTier[K, V] {
	return &memTier[K, V]{
		entries: make(map[K]*memEntry[V]),
		limit:   limit,
	}
}

// get returns the entry's value if present and fresh, bumping its access
// time on a hit.
func (m *memTier[K, V]) get(key K, fresh Freshness, now time.Time) (V, bool) {
	e, ok := m.entries[key]
	if !ok || !fresh.passes(e.cachedAt, now) {
		var zero V
		return zero, false
	}
	e.accessedAt = now
	return e.value, true
}

// put inserts or overwrites an entry. Overwriting replaces the entry
// entirely, recomputing cost. When the total exceeds the limit the tier
// purges down to three quarters of it, which keeps steady put/read traffic
// near the limit from thrashing the evictor.
func (m *memTier[K, V]) put(key K, v V, cost int64, cachedAt, now time.Time) (freed int64, evicted int) {
	if old, ok := m.entries[key]; ok {
		m.total -= old.cost
	}
	m.seq++
	m.entries[key] = &memEntry[V]{
		value:      v,
		cost:       cost,
		cachedAt:   cachedAt,
		accessedAt: now,
		seq:        m.seq,
	}
	m.total += cost
	if m.limit > 0 && m.total > m.limit {
		return m.purgeTo(m.limit * 3 / 4)
	}
	return 0, 0
}

func (m *memTier[K, V]) remove(key K) {
	if e, ok := m.entries[key]; ok {
		m.total -= e.cost
		delete(m.entries, key)
	}
}

func (m *memTier[K, V]) clear() {
	m.entries = make(map[K]*memEntry[V])
	m.total = 0
}

// purgeTo evicts entries least-recently-accessed first until the total cost
// is at or below target.
func (m *memTier[K, V]) purgeTo(target int64) (freed int64, evicted int) {
	if m.total <= target {
		return 0, 0
	}

	type victim struct {
		key        K
		cost       int64
		accessedAt time.Time
		seq        int64
	}
	victims := make([]victim, 0, len(m.entries))
	for k, e := range m.entries {
		victims = append(victims, victim{key: k, cost: e.cost, accessedAt: e.accessedAt, seq: e.seq})
	}
	sort.Slice(victims, func(i, j int) bool {
		if victims[i].accessedAt.Equal(victims[j].accessedAt) {
			return victims[i].seq < victims[j].seq
		}
		return victims[i].accessedAt.Before(victims[j].accessedAt)
	})

	for _, v := range victims {
		if m.total <= target {
			break
		}
		delete(m.entries, v.key)
		m.total -= v.cost
		freed += v.cost
		evicted++
	}
	return freed, evicted
}
