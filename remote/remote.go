package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// clearConcurrency bounds the delete fan-out during Clear.
const clearConcurrency = 8

// Config enables the remote tier.
type Config struct {
	// Store is the record store client.
	Store Store

	// RecordType namespaces this cache's records within the store.
	RecordType string

	// AssetLimit is the encoded size at or above which a payload is
	// written to the record's asset field instead of inline. Zero disables
	// the split: every payload is written inline.
	AssetLimit int64
}

// Tier wraps a Store with the cache's record layout: one record per key,
// id "<recordType>:<printable key>", payload inline or as an asset
// depending on size.
type Tier struct {
	store      Store
	recordType string
	assetLimit int64
	report     func(err error, context string)
}

// NewTier creates a Tier from cfg. The reporter receives swallowed
// failures; it must be non-nil.
func NewTier(cfg Config, report func(err error, context string)) (*Tier, error) {
	if cfg.Store == nil {
		return nil, errors.New("remote: store is nil")
	}
	if cfg.RecordType == "" {
		return nil, errors.New("remote: record type is empty")
	}
	return &Tier{
		store:      cfg.Store,
		recordType: cfg.RecordType,
		assetLimit: cfg.AssetLimit,
		report:     report,
	}, nil
}

// RecordID derives the record id for a printable key.
func (t *Tier) RecordID(key string) string {
	return t.recordType + ":" + key
}

// Get fetches the record for key. A missing record is a miss, not an
// error. On a hit the payload bytes and the record's server-assigned
// modification instant are returned; the caller applies its freshness
// predicate against that instant.
func (t *Tier) Get(ctx context.Context, key string) (data []byte, modifiedAt time.Time, ok bool, err error) {
	rec, err := t.store.Fetch(ctx, t.RecordID(key))
	if err != nil {
		if errors.Is(err, ErrUnknownRecord) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("fetch record %q: %w", t.RecordID(key), err)
	}
	if len(rec.Inline) > 0 {
		return rec.Inline, rec.ModifiedAt, true, nil
	}
	return rec.Asset, rec.ModifiedAt, true, nil
}

// Put upserts the record for key, choosing the inline or asset field by
// size. Permission failures are reported and swallowed.
func (t *Tier) Put(ctx context.Context, key string, data []byte) error {
	rec := Record{
		ID:   t.RecordID(key),
		Type: t.recordType,
	}
	if t.assetLimit > 0 && int64(len(data)) >= t.assetLimit {
		rec.Asset = data
	} else {
		rec.Inline = data
	}
	if err := t.store.Upsert(ctx, rec); err != nil {
		if errors.Is(err, ErrPermission) {
			t.report(err, "remote: upsert "+rec.ID)
			return nil
		}
		return fmt.Errorf("upsert record %q: %w", rec.ID, err)
	}
	return nil
}

// Remove deletes the record for key. A missing record is not an error.
func (t *Tier) Remove(ctx context.Context, key string) error {
	id := t.RecordID(key)
	if err := t.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUnknownRecord) {
			return nil
		}
		return fmt.Errorf("delete record %q: %w", id, err)
	}
	return nil
}

// Clear deletes every record of the tier's type. Per-record failures are
// reported; only a listing failure is returned.
func (t *Tier) Clear(ctx context.Context) error {
	ids, err := t.store.List(ctx, t.recordType)
	if err != nil {
		return fmt.Errorf("list records of type %q: %w", t.recordType, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(clearConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := t.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrUnknownRecord) {
				t.report(err, "remote: clear "+id)
			}
			return nil
		})
	}
	return g.Wait()
}
