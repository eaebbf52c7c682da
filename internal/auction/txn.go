package auction

import (
	"fmt"

	"Dauction/internal/events"
	"Dauction/internal/storage"
)

// preimage is a key's committed value before an operation touched it.
// A nil value means the key did not exist.
type preimage struct {
	key   []byte
	value []byte
}

// txn collects one operation's writes and events into a single batch and
// remembers the pre-images needed to roll the batch back after commit.
type txn struct {
	db      *storage.Storage
	sink    EventSink
	batch   *storage.Batch
	undo    []preimage
	touched map[string]struct{}
	events  []events.Event
	stamped []events.Event
}

func newTxn(db *storage.Storage, sink EventSink) *txn {
	return &txn{
		db:      db,
		sink:    sink,
		batch:   db.NewBatch(),
		touched: make(map[string]struct{}),
	}
}

// remember records the committed value of key the first time it is touched.
func (t *txn) remember(key []byte) error {
	if _, ok := t.touched[string(key)]; ok {
		return nil
	}

	prev, err := t.db.Get(key)
	if err != nil {
		return fmt.Errorf("read pre-image %x:\n%w", key, err)
	}

	t.touched[string(key)] = struct{}{}
	t.undo = append(t.undo, preimage{key: append([]byte{}, key...), value: prev})

	return nil
}

func (t *txn) set(key, value []byte) error {
	if err := t.remember(key); err != nil {
		return err
	}

	t.batch.Set(key, value)

	return nil
}

func (t *txn) del(key []byte) error {
	if err := t.remember(key); err != nil {
		return err
	}

	t.batch.Delete(key)

	return nil
}

func (t *txn) emit(ev events.Event) {
	t.events = append(t.events, ev)
}

// commit stages events and applies the batch. Bookkeeping is final and
// visible to readers once commit returns.
func (t *txn) commit() error {
	if t.sink != nil && len(t.events) > 0 {
		stamped, err := t.sink.Stage(t.batch, t.events)
		if err != nil {
			return err
		}
		t.stamped = stamped
	}

	if err := t.batch.Commit(); err != nil {
		return fmt.Errorf("commit batch:\n%w", err)
	}

	return nil
}

// close releases the batch; an uncommitted batch is discarded.
func (t *txn) close() {
	t.batch.Close()
}

// rollback restores every pre-image and discards staged events.
func (t *txn) rollback() error {
	b := t.db.NewBatch()
	defer b.Close()

	for _, p := range t.undo {
		if p.value == nil {
			b.Delete(p.key)
		} else {
			b.Set(p.key, p.value)
		}
	}

	if t.sink != nil && len(t.stamped) > 0 {
		t.sink.Unstage(b, t.stamped)
	}

	if err := b.Commit(); err != nil {
		return fmt.Errorf("commit rollback:\n%w", err)
	}

	t.stamped = nil

	return nil
}

// publish releases committed events to subscribers.
func (t *txn) publish() []events.Event {
	if t.sink != nil && len(t.stamped) > 0 {
		t.sink.Commit(t.stamped)
	}

	return t.stamped
}
