package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Dauction/internal/logger"
	"Dauction/internal/storage"
)

// Position reports how far the ledger has advanced. A snapshot is only
// retaken once it moves.
type Position interface {
	Next() uint64
}

// Manager writes periodic snapshots of the ledger to a file.
type Manager struct {
	db       *storage.Storage
	pos      Position
	path     string
	interval time.Duration

	mu   sync.RWMutex
	info Info
	at   uint64 // at is the position of the last written snapshot

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a manager that writes to path every interval.
func NewManager(db *storage.Storage, pos Position, path string, interval time.Duration) *Manager {
	return &Manager{
		db:       db,
		pos:      pos,
		path:     path,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic snapshot loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop stops the loop, takes a final snapshot and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Latest returns the info of the last written snapshot and the ledger
// position it was taken at. Zero before the first write.
func (m *Manager) Latest() (Info, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.info, m.at
}

func (m *Manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			m.write()
			return
		case <-ticker.C:
			m.write()
		}
	}
}

// write snapshots the ledger unless nothing changed since the last write.
func (m *Manager) write() {
	at := m.pos.Next()

	m.mu.RLock()
	last, written := m.at, m.info.Entries > 0
	m.mu.RUnlock()

	if written && at == last {
		return
	}

	start := time.Now()

	data, info, err := Create(m.db)
	if err != nil {
		logger.Error("create snapshot", "error", err)
		return
	}

	if info.Entries == 0 {
		return
	}

	if err := writeAtomic(m.path, data); err != nil {
		logger.Error("write snapshot", "path", m.path, "error", err)
		return
	}

	m.mu.Lock()
	m.info = info
	m.at = at
	m.mu.Unlock()

	logger.Debug("snapshot written",
		"path", m.path,
		"entries", info.Entries,
		"size", len(data),
		"event_seq", at,
		logger.Timed(start),
	)
}

// writeAtomic replaces path with data through a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file:\n%w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file:\n%w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file:\n%w", err)
	}

	return os.Rename(tmp.Name(), path)
}
