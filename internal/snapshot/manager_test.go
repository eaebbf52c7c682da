package snapshot

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type fakePosition struct {
	next atomic.Uint64
}

func (p *fakePosition) Next() uint64 { return p.next.Load() }

func TestManagerWritesRestorableSnapshot(t *testing.T) {
	db := newTestStorage(t)
	fill(t, db)

	pos := &fakePosition{}
	pos.next.Store(51)

	path := filepath.Join(t.TempDir(), "ledger.snap")
	m := NewManager(db, pos, path, 20*time.Millisecond)

	m.Start()
	time.Sleep(100 * time.Millisecond)
	m.Stop()

	info, at := m.Latest()
	if at != 51 {
		t.Errorf("expected position 51, got %d", at)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	restored := newTestStorage(t)
	applied, err := Apply(restored, data)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if applied.Checksum != info.Checksum {
		t.Error("written snapshot does not match reported info")
	}
}

func TestManagerSkipsUnchangedLedger(t *testing.T) {
	db := newTestStorage(t)
	fill(t, db)

	pos := &fakePosition{}
	pos.next.Store(7)

	path := filepath.Join(t.TempDir(), "ledger.snap")
	m := NewManager(db, pos, path, time.Hour)

	m.write()

	first, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat snapshot: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove snapshot: %v", err)
	}

	m.write()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no rewrite while the position is unchanged")
	}

	pos.next.Store(8)
	m.write()

	second, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected rewrite after the position moved: %v", err)
	}

	if second.Size() != first.Size() {
		t.Errorf("expected identical content size, got %d and %d", first.Size(), second.Size())
	}
}

func TestManagerSkipsEmptyStorage(t *testing.T) {
	db := newTestStorage(t)

	path := filepath.Join(t.TempDir(), "ledger.snap")
	m := NewManager(db, &fakePosition{}, path, time.Hour)

	m.write()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no snapshot for empty storage")
	}
}
