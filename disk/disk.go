// Package disk implements the cache's on-disk tier: one regular file per
// live entry under a single directory, byte-bounded with LRU pruning by
// access time.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	digest "github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"
)

const defaultDirPerm = 0o700

// sanitizer maps printable keys onto filesystem-safe names. The substitution
// is injective as long as no two live keys collide after replacement; use
// WithDigestNames for a collision-free scheme.
var sanitizer = strings.NewReplacer("/", "-", ":", ";")

// Store is a byte store rooted at one directory, owned exclusively by a
// single cache instance. The byte counter is authoritative within a run and
// seeded from an enumeration of the directory at construction.
type Store struct {
	dir         string
	dirPerm     os.FileMode
	maxBytes    int64
	digestNames bool
	bytes       atomic.Int64
	pruneMu     sync.Mutex
	report      func(err error, context string)
	now         func() time.Time
	log         zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBytes sets the byte ceiling. Use 0 to disable the limit.
func WithMaxBytes(n int64) Option {
	return func(s *Store) { s.maxBytes = n }
}

// WithDirPerm sets the permissions used for the cache directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) { s.dirPerm = mode }
}

// WithDigestNames names files by the SHA-256 digest of the key instead of
// the sanitized key itself. Digest names are collision-free but opaque.
func WithDigestNames() Option {
	return func(s *Store) { s.digestNames = true }
}

// WithReporter sets the hook that receives swallowed I/O errors.
func WithReporter(fn func(err error, context string)) Option {
	return func(s *Store) { s.report = fn }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithLogger sets the logger used for prune summaries. Disabled by default.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store rooted at dir, creating the directory if needed and
// summing any existing files into the byte counter.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("disk: cache dir is empty")
	}
	s := &Store{
		dir:     dir,
		dirPerm: defaultDirPerm,
		report:  func(error, string) {},
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxBytes < 0 {
		return nil, errors.New("disk: max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	_, total, err := scanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan cache dir: %w", err)
	}
	s.bytes.Store(total)
	return s, nil
}

// path derives the file path for a key and extension.
func (s *Store) path(key, ext string) string {
	var name string
	if s.digestNames {
		name = digest.SHA256.FromString(key).Encoded()
	} else {
		name = sanitizer.Replace(key)
	}
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(s.dir, name)
}

// Get reads the entry for key if it exists and its cached-at instant passes
// fresh. On a hit the file's mtime is bumped to now, which feeds the LRU
// prune order. The returned instant is the entry's cached-at time before the
// bump. All failures are reported and surface as a miss.
//
// The tier keeps no sidecar metadata, so an entry's cached-at instant and
// access instant are the same timestamp: a hit refreshes both.
func (s *Store) Get(key, ext string, fresh func(cachedAt time.Time) bool) ([]byte, time.Time, bool) {
	path := s.path(key, ext)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.report(err, "disk: stat "+path)
		}
		return nil, time.Time{}, false
	}
	cachedAt := info.ModTime()
	if fresh != nil && !fresh(cachedAt) {
		return nil, time.Time{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.report(err, "disk: read "+path)
		return nil, time.Time{}, false
	}
	now := s.now()
	if err := os.Chtimes(path, now, now); err != nil {
		s.report(err, "disk: touch "+path)
	}
	return data, cachedAt, true
}

// Put writes data for key atomically, replacing any existing entry, and
// prunes to three quarters of the limit when the total exceeds it. Failures
// are reported; the store is left unmodified from the failing step on.
func (s *Store) Put(key, ext string, data []byte) {
	path := s.path(key, ext)
	if info, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			s.report(err, "disk: replace "+path)
			return
		}
		s.bytes.Add(-info.Size())
	} else if !errors.Is(err, os.ErrNotExist) {
		s.report(err, "disk: stat "+path)
		return
	}

	tmp, err := os.CreateTemp(s.dir, "strata-*")
	if err != nil {
		s.report(err, "disk: create temp for "+path)
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		s.report(err, "disk: write "+path)
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		s.report(err, "disk: close "+path)
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		s.report(err, "disk: rename "+path)
		return
	}
	s.bytes.Add(int64(len(data)))

	if s.maxBytes > 0 && s.bytes.Load() > s.maxBytes {
		freed, err := s.Prune(s.maxBytes * 3 / 4)
		if err != nil {
			s.report(err, "disk: prune")
		} else if freed > 0 {
			s.log.Debug().Str("freed", humanize.IBytes(uint64(freed))).Msg("disk tier pruned")
		}
	}
}

// Remove deletes the entry for key. A missing entry is not an error.
func (s *Store) Remove(key, ext string) {
	path := s.path(key, ext)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.report(err, "disk: stat "+path)
		}
		return
	}
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.report(err, "disk: remove "+path)
		}
		return
	}
	s.bytes.Add(-info.Size())
}

// Clear deletes the cache directory tree, re-creates it, and zeroes the
// byte counter.
func (s *Store) Clear() {
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()
	if err := os.RemoveAll(s.dir); err != nil {
		s.report(err, "disk: clear "+s.dir)
	}
	if err := os.MkdirAll(s.dir, s.dirPerm); err != nil {
		s.report(err, "disk: recreate "+s.dir)
	}
	s.bytes.Store(0)
}

// SizeBytes returns the current total size of stored entries.
func (s *Store) SizeBytes() int64 {
	return s.bytes.Load()
}

// MaxBytes returns the configured byte ceiling (0 = unlimited).
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Prune deletes entries least-recently-accessed first until the total is at
// or below target. Returns the number of bytes freed.
func (s *Store) Prune(target int64) (int64, error) {
	if target < 0 {
		target = 0
	}
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	files, total, err := scanDir(s.dir)
	if err != nil {
		return 0, err
	}
	freed, remaining, err := pruneFiles(files, total, target)
	s.bytes.Store(remaining)
	return freed, err
}
