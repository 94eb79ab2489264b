package strata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/meigma/strata/disk"
	"github.com/meigma/strata/remote"
)

// FetchFunc produces a payload for a key that missed every tier. Returning
// ok=false means the source has no value for the key; an error is
// propagated to every awaiter of the coalesced fetch.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, bool, error)

// Cache is a typed three-tier content cache: a cost-bounded in-memory tier,
// an optional byte-bounded on-disk tier, and an optional remote record
// store shared across a user's devices.
//
// Reads fall through the tiers in order and promote hits upward. Concurrent
// async misses for the same key coalesce onto a single fetch. Local I/O
// failures are reported through the Reporter hook and never surface on the
// synchronous path.
//
// The zero value is not usable; create instances with New.
type Cache[K comparable, V any] struct {
	codec Codec[V]
	print func(K) string

	// mu guards the memory tier, the fetcher, and the reporter. The tiers
	// mutate together on promotion and write paths, so the engine keeps
	// one lock rather than locking tiers individually. It is never held
	// across remote round-trips or fetch callbacks.
	mu       sync.Mutex
	mem      *memTier[K, V]
	fetch    FetchFunc[K, V]
	reporter Reporter

	store   *disk.Store  // nil when no location is configured
	rem     *remote.Tier // nil when no remote is configured
	flights *flightGroup[V]

	log      zerolog.Logger
	now      func() time.Time
	bg       sync.WaitGroup
	counters counters
}

// counters accumulate per-tier traffic for Stats snapshots.
type counters struct {
	memHits      atomic.Int64
	memMisses    atomic.Int64
	diskHits     atomic.Int64
	diskMisses   atomic.Int64
	remoteHits   atomic.Int64
	remoteMisses atomic.Int64
	fetchCalls   atomic.Int64
	memEvictions atomic.Int64
}

// Stats is a point-in-time snapshot of cache traffic.
type Stats struct {
	MemoryHits      int64
	MemoryMisses    int64
	DiskHits        int64
	DiskMisses      int64
	RemoteHits      int64
	RemoteMisses    int64
	FetchCalls      int64
	MemoryEvictions int64
}

// New creates a Cache using codec for payload conversion and print for the
// stable printable form of keys. Two equal keys must print identically for
// the cache lifetime, and distinct live keys must print distinctly.
//
// The default disk filename scheme substitutes '/' with '-' and ':' with
// ';' in the printed key, which is injective only if no two live keys
// collide after substitution; pass WithDigestNames for a collision-free
// scheme.
func New[K comparable, V any](codec Codec[V], print func(K) string, opts ...Option) (*Cache[K, V], error) {
	if codec == nil {
		return nil, errors.New("strata: codec is nil")
	}
	if print == nil {
		return nil, errors.New("strata: key printer is nil")
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.memLimit < 0 || s.diskLimit < 0 {
		return nil, errors.New("strata: tier limits must be >= 0")
	}

	c := &Cache[K, V]{
		codec:   codec,
		print:   print,
		mem:     newMemTier[K, V](s.memLimit),
		flights: newFlightGroup[V](),
		log:     s.logger,
		now:     s.now,
	}
	c.reporter = s.reporter
	if c.reporter == nil {
		c.reporter = defaultReporter()
	}

	if s.location != "" {
		dopts := []disk.Option{
			disk.WithMaxBytes(s.diskLimit),
			disk.WithReporter(c.report),
			disk.WithClock(s.now),
			disk.WithLogger(s.logger),
		}
		if s.digestNames {
			dopts = append(dopts, disk.WithDigestNames())
		}
		store, err := disk.New(s.location, dopts...)
		if err != nil {
			return nil, err
		}
		c.store = store
	}

	if s.remote != nil {
		tier, err := remote.NewTier(*s.remote, c.report)
		if err != nil {
			return nil, err
		}
		c.rem = tier
	}

	return c, nil
}

// Get is the synchronous read path: memory, then disk. A disk hit is
// decoded and promoted into memory with its original cached-at instant.
// Get never consults the remote tier and never surfaces an error; decode
// and I/O failures are reported and treated as misses.
func (c *Cache[K, V]) Get(key K, fresh Freshness) (V, bool) {
	var zero V
	now := c.now()

	c.mu.Lock()
	if v, ok := c.mem.get(key, fresh, now); ok {
		c.mu.Unlock()
		c.counters.memHits.Add(1)
		return v, true
	}
	c.mu.Unlock()
	c.counters.memMisses.Add(1)

	if c.store == nil {
		return zero, false
	}
	name := c.print(key)
	data, cachedAt, ok := c.store.Get(name, c.codec.Ext(), func(t time.Time) bool {
		return fresh.passes(t, now)
	})
	if !ok {
		c.counters.diskMisses.Add(1)
		return zero, false
	}
	v, err := c.codec.Decode(data)
	if err != nil {
		c.report(fmt.Errorf("%w: disk entry %q: %v", ErrDecode, name, err), "get: decode")
		c.counters.diskMisses.Add(1)
		return zero, false
	}
	c.counters.diskHits.Add(1)
	c.promote(key, v, cachedAt, now)
	return v, true
}

// GetAsync is the asynchronous read path. It tries the synchronous path
// first, then joins or starts a coalesced fetch that consults the remote
// tier and finally the fetch callback. Fetched values are persisted to the
// local tiers, and callback results are additionally upserted to the remote
// tier in the background.
//
// ctx bounds only this caller's wait; abandoning it does not cancel a fetch
// other awaiters share.
func (c *Cache[K, V]) GetAsync(ctx context.Context, key K, fresh Freshness) (V, bool, error) {
	var zero V
	if v, ok := c.Get(key, fresh); ok {
		return v, true, nil
	}

	c.mu.Lock()
	fetch := c.fetch
	c.mu.Unlock()
	if fetch == nil && c.rem == nil {
		return zero, false, nil
	}

	return c.flights.do(ctx, c.print(key), func(fctx context.Context) (V, bool, error) {
		return c.fill(fctx, key, fresh)
	})
}

// fill runs inside a coalesced fetch and tries the remaining sources in
// order: local tiers again (another flight may have just landed the value),
// the remote tier, then the fetch callback.
func (c *Cache[K, V]) fill(ctx context.Context, key K, fresh Freshness) (V, bool, error) {
	var zero V
	if v, ok := c.Get(key, fresh); ok {
		return v, true, nil
	}
	name := c.print(key)

	if c.rem != nil {
		data, modifiedAt, ok, err := c.rem.Get(ctx, name)
		if err != nil {
			c.report(err, "fill: remote get "+name)
			return zero, false, err
		}
		if ok && fresh.passes(modifiedAt, c.now()) {
			v, err := c.codec.Decode(data)
			if err != nil {
				err = fmt.Errorf("%w: remote record %q: %v", ErrDecode, name, err)
				c.report(err, "fill: decode")
				return zero, false, err
			}
			c.counters.remoteHits.Add(1)
			if c.store != nil {
				c.store.Put(name, c.codec.Ext(), data)
			}
			c.promote(key, v, modifiedAt, c.now())
			return v, true, nil
		}
		c.counters.remoteMisses.Add(1)
	}

	c.mu.Lock()
	fetch := c.fetch
	c.mu.Unlock()
	if fetch == nil {
		return zero, false, nil
	}

	c.counters.fetchCalls.Add(1)
	v, ok, err := fetch(ctx, key)
	if err != nil {
		err = fmt.Errorf("%w: %q: %w", ErrFetchFailed, name, err)
		c.report(err, "fill: fetch")
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}

	now := c.now()
	c.promote(key, v, now, now)
	data, encErr := c.codec.Encode(v)
	if encErr != nil {
		c.report(fmt.Errorf("%w: %q: %v", ErrNoData, name, encErr), "fill: encode")
		return v, true, nil
	}
	if c.store != nil {
		c.store.Put(name, c.codec.Ext(), data)
	}
	c.remoteUpsert(name, data)
	return v, true, nil
}

// Set is the write path: insert into memory, write to disk, and upsert to
// the remote tier in the background. Set never surfaces an error; encode
// and I/O failures are reported, and a disk write failure leaves the memory
// tier authoritative for the key.
func (c *Cache[K, V]) Set(key K, v V) {
	now := c.now()
	name := c.print(key)

	data, err := c.codec.Encode(v)
	encoded := err == nil
	if err != nil {
		c.report(fmt.Errorf("%w: %q: %v", ErrNoData, name, err), "set: encode")
	}

	c.promote(key, v, now, now)
	if !encoded {
		return
	}
	if c.store != nil {
		c.store.Put(name, c.codec.Ext(), data)
	}
	c.remoteUpsert(name, data)
}

// Remove deletes the key from every tier. The remote delete is
// fire-and-forget.
func (c *Cache[K, V]) Remove(key K) {
	name := c.print(key)

	c.mu.Lock()
	c.mem.remove(key)
	c.mu.Unlock()

	if c.store != nil {
		c.store.Remove(name, c.codec.Ext())
	}
	if c.rem != nil {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			if err := c.rem.Remove(context.Background(), name); err != nil {
				c.report(err, "remove: remote delete "+name)
			}
		}()
	}
}

// Clear discards the selected local tiers. Clearing memory also cancels
// every outstanding coalesced fetch; awaiters observe the cancellation.
func (c *Cache[K, V]) Clear(memory, diskTier bool) {
	if memory {
		c.mu.Lock()
		c.mem.clear()
		c.mu.Unlock()
		c.flights.cancelAll()
	}
	if diskTier && c.store != nil {
		c.store.Clear()
	}
}

// ClearAsync clears like Clear and optionally deletes every remote record
// of this cache's type. Only remote transport failures are returned.
func (c *Cache[K, V]) ClearAsync(ctx context.Context, memory, diskTier, remoteTier bool) error {
	c.Clear(memory, diskTier)
	if remoteTier && c.rem != nil {
		return c.rem.Clear(ctx)
	}
	return nil
}

// InMemoryCost returns the memory tier's current total cost.
func (c *Cache[K, V]) InMemoryCost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem.total
}

// OnDiskCost returns the disk tier's current total size, or zero when the
// disk tier is disabled.
func (c *Cache[K, V]) OnDiskCost() int64 {
	if c.store == nil {
		return 0
	}
	return c.store.SizeBytes()
}

// SetFetcher installs the callback consulted by GetAsync after every tier
// misses.
func (c *Cache[K, V]) SetFetcher(fn FetchFunc[K, V]) {
	c.mu.Lock()
	c.fetch = fn
	c.mu.Unlock()
}

// SetReporter replaces the hook receiving swallowed errors.
func (c *Cache[K, V]) SetReporter(fn Reporter) {
	c.mu.Lock()
	c.reporter = fn
	c.mu.Unlock()
}

// Stats returns a snapshot of cache traffic.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		MemoryHits:      c.counters.memHits.Load(),
		MemoryMisses:    c.counters.memMisses.Load(),
		DiskHits:        c.counters.diskHits.Load(),
		DiskMisses:      c.counters.diskMisses.Load(),
		RemoteHits:      c.counters.remoteHits.Load(),
		RemoteMisses:    c.counters.remoteMisses.Load(),
		FetchCalls:      c.counters.fetchCalls.Load(),
		MemoryEvictions: c.counters.memEvictions.Load(),
	}
}

// Close waits for background remote writes to drain.
func (c *Cache[K, V]) Close() error {
	c.bg.Wait()
	return nil
}

// inflight reports the number of fetches currently executing.
func (c *Cache[K, V]) inflight() int {
	return c.flights.len()
}

// promote inserts a value into the memory tier, logging any purge it
// triggers.
func (c *Cache[K, V]) promote(key K, v V, cachedAt, now time.Time) {
	cost := c.codec.Cost(v)
	c.mu.Lock()
	freed, evicted := c.mem.put(key, v, cost, cachedAt, now)
	c.mu.Unlock()
	if evicted > 0 {
		c.counters.memEvictions.Add(int64(evicted))
		c.log.Debug().
			Int("entries", evicted).
			Str("freed", humanize.IBytes(uint64(freed))).
			Msg("memory tier purged")
	}
}

// remoteUpsert writes encoded bytes to the remote tier on a background
// goroutine.
func (c *Cache[K, V]) remoteUpsert(name string, data []byte) {
	if c.rem == nil {
		return
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := c.rem.Put(context.Background(), name, data); err != nil {
			c.report(err, "remote upsert "+name)
		}
	}()
}

// report forwards an error to the current reporter outside any lock.
func (c *Cache[K, V]) report(err error, context string) {
	c.mu.Lock()
	fn := c.reporter
	c.mu.Unlock()
	if fn != nil {
		fn(err, context)
	}
}
