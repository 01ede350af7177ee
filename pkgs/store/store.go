// Package store is the persistence layer. It wraps pebble with a small
// byte-oriented API; record encoding stays with the callers.
package store

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
)

var (
	ErrClosed    = errors.New("store: database is closed")
	ErrBatchDone = errors.New("store: batch already committed")
)

type Store struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 * 1024 * 1024),
		MemTableSize: 32 * 1024 * 1024,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral database, used by tests and the in-process
// client.
func OpenInMemory() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: memFS()})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get returns the value at key and whether it exists. The returned slice is a
// copy and safe to retain.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Has reports whether key exists.
func (s *Store) Has(key []byte) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

// Put writes a single key synchronously. Multi-key updates should go through
// a Batch so they land atomically.
func (s *Store) Put(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Set(key, value, pebble.Sync)
}

// Scan calls fn for every key with the given prefix, in key order. Key and
// value slices are copies.
func (s *Store) Scan(prefix []byte, fn func(key, value []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		valCopy := make([]byte, len(value))
		copy(valCopy, value)
		if err := fn(key, valCopy); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with the
// prefix, or nil when the prefix is all 0xff.
func prefixUpperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
