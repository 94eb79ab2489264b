// Package storetest provides an in-memory remote.Store for tests.
package storetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/meigma/strata/remote"
)

// Store is an in-memory remote.Store with injectable failures and call
// counters. The zero value is not usable; create one with New.
type Store struct {
	mu      sync.Mutex
	records map[string]remote.Record

	// Error overrides. When set, the corresponding operation fails with
	// the given error instead of touching the records map.
	FetchErr  error
	UpsertErr error
	DeleteErr error
	ListErr   error

	// Clock supplies the server-assigned modification instant on upsert.
	Clock func() time.Time

	fetches int
	upserts int
	deletes int
	lists   int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]remote.Record),
		Clock:   time.Now,
	}
}

// Seed inserts a record directly, bypassing counters and error overrides.
func (s *Store) Seed(rec remote.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

// Record returns the stored record for id, if any.
func (s *Store) Record(id string) (remote.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Counts returns how many times each operation has been called.
func (s *Store) Counts() (fetches, upserts, deletes, lists int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches, s.upserts, s.deletes, s.lists
}

func (s *Store) Fetch(_ context.Context, id string) (remote.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.FetchErr != nil {
		return remote.Record{}, s.FetchErr
	}
	rec, ok := s.records[id]
	if !ok {
		return remote.Record{}, remote.ErrUnknownRecord
	}
	return rec, nil
}

func (s *Store) Upsert(_ context.Context, rec remote.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	rec.ModifiedAt = s.Clock()
	s.records[rec.ID] = rec
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.records[id]; !ok {
		return remote.ErrUnknownRecord
	}
	delete(s.records, id)
	return nil
}

func (s *Store) List(_ context.Context, recordType string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var ids []string
	for id := range s.records {
		if strings.HasPrefix(id, recordType+":") {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
