package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond
)

// KeyValue represents a key-value pair for batch operations.
type KeyValue struct {
	Key   []byte // Key is the key to store
	Value []byte // Value is the value to store
}

// Storage is the ledger's key-value store backed by Pebble.
// Single writes are non-blocking (NoSync) and a background goroutine
// periodically syncs the WAL. Batches commit synchronously because they
// carry complete ledger operations.
type Storage struct {
	db       *pebble.DB    // db is the underlying Pebble database
	stopSync chan struct{} // stopSync signals the sync goroutine to stop
	wg       sync.WaitGroup
}

// New opens a Storage instance at the given path.
func New(path string) (*Storage, error) {
	return open(path, nil)
}

// NewInMemory opens a Storage instance on an in-memory filesystem.
// Contents are lost on Close.
func NewInMemory() (*Storage, error) {
	return open("", vfs.NewMem())
}

// open configures and opens the Pebble database.
func open(path string, fs vfs.FS) (*Storage, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(32 << 20), // 32 MB cache
		MemTableSize:                16 << 20,                  // 16 MB memtable
		MemTableStopWritesThreshold: 2,
	}
	if fs != nil {
		opts.FS = fs
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		db:       db,
		stopSync: make(chan struct{}),
	}

	s.startSyncLoop()

	return s, nil
}

// Get retrieves the value for the given key.
// Returns nil if the key does not exist.
func (s *Storage) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// Set stores a key-value pair.
func (s *Storage) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.NoSync)
}

// Delete removes a key from the store.
func (s *Storage) Delete(key []byte) error {
	return s.db.Delete(key, pebble.NoSync)
}

// SetBatch atomically stores multiple key-value pairs.
// Either all pairs are written or none.
func (s *Storage) SetBatch(pairs []KeyValue) error {
	b := s.NewBatch()
	defer b.Close()

	for _, kv := range pairs {
		b.Set(kv.Key, kv.Value)
	}

	return b.Commit()
}

// Batch stages writes and deletes that are applied atomically on Commit.
// Errors from staging are deferred to Commit so callers can stage freely.
type Batch struct {
	batch  *pebble.Batch
	err    error
	ops    int
	closed bool
}

// NewBatch starts a new write batch.
func (s *Storage) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// Set stages a write.
func (b *Batch) Set(key, value []byte) {
	if b.err != nil {
		return
	}

	b.err = b.batch.Set(key, value, nil)
	b.ops++
}

// Delete stages a delete.
func (b *Batch) Delete(key []byte) {
	if b.err != nil {
		return
	}

	b.err = b.batch.Delete(key, nil)
	b.ops++
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return b.ops
}

// Commit applies every staged operation atomically and syncs the WAL.
func (b *Batch) Commit() error {
	if b.err != nil {
		return b.err
	}

	return b.batch.Commit(pebble.Sync)
}

// Close releases the batch. It is safe to call after Commit and more than
// once.
func (b *Batch) Close() {
	if b.closed {
		return
	}

	b.closed = true
	_ = b.batch.Close()
}

// Iterate calls fn for each key-value pair in the database.
// If fn returns an error, iteration stops and the error is returned.
// Keys are visited in lexicographic order.
func (s *Storage) Iterate(fn func(key, value []byte) error) error {
	return s.scan(nil, fn)
}

// IteratePrefix calls fn for each key-value pair with the given prefix.
// The key and value slices are only valid until fn returns.
func (s *Storage) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	return s.scan(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	}, fn)
}

// IterateFrom calls fn for each key-value pair with the given prefix whose
// key is greater than or equal to start.
func (s *Storage) IterateFrom(prefix, start []byte, fn func(key, value []byte) error) error {
	return s.scan(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: prefixUpperBound(prefix),
	}, fn)
}

// scan runs fn over an iterator with the given bounds.
func (s *Storage) scan(opts *pebble.IterOptions, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(opts)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil // all 0xFF, unbounded
}

// Close stops the sync goroutine and closes the database.
// It performs a final sync before closing to ensure durability.
func (s *Storage) Close() error {
	close(s.stopSync)
	s.wg.Wait()

	if err := s.sync(); err != nil {
		return err
	}

	return s.db.Close()
}

// startSyncLoop starts the background goroutine that periodically syncs the WAL.
func (s *Storage) startSyncLoop() {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(defaultSyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.sync()
			case <-s.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (s *Storage) sync() error {
	return s.db.LogData(nil, pebble.Sync)
}
