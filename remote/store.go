// Package remote implements the cache's optional cold tier on top of an
// abstract record store shared across a user's devices.
package remote

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownRecord is returned by stores when no record exists for an
	// id. The tier treats it as a miss, not a failure.
	ErrUnknownRecord = errors.New("remote: unknown record")

	// ErrPermission is returned by stores when the backend denies a write.
	// The tier reports and swallows it: a misconfigured remote must not
	// break local caching.
	ErrPermission = errors.New("remote: permission denied")
)

// Record is one stored payload. Exactly one of Inline and Asset is
// populated per upsert: Inline for payloads under the tier's asset limit,
// Asset for everything else. ModifiedAt is assigned by the server.
type Record struct {
	ID         string
	Type       string
	Inline     []byte
	Asset      []byte
	ModifiedAt time.Time
}

// Store abstracts the remote record store. Implementations translate their
// backend's not-found and access-denied failures to ErrUnknownRecord and
// ErrPermission so the tier can classify them.
type Store interface {
	// Fetch returns the record with the given id, or ErrUnknownRecord.
	Fetch(ctx context.Context, id string) (Record, error)

	// Upsert creates or overwrites a record.
	Upsert(ctx context.Context, rec Record) error

	// Delete removes the record with the given id, or returns
	// ErrUnknownRecord if absent.
	Delete(ctx context.Context, id string) error

	// List returns the ids of every record of the given type.
	List(ctx context.Context, recordType string) ([]string, error)
}
