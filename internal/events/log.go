// Package events persists and fans out auction lifecycle events.
//
// Events are staged into the same storage batch as the ledger mutation that
// produced them, so an event exists if and only if its operation committed.
// Subscribers only see events after the commit.
package events

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"Dauction/internal/storage"
)

var (
	prefixEvent = []byte("e:")
	keyNextSeq  = []byte("m:eseq")
)

// Log is the append-only event log.
type Log struct {
	db  *storage.Storage
	bus *Bus

	mu   sync.Mutex
	next uint64 // next is the sequence number of the next committed event
}

// OpenLog loads the log's position from storage. bus may be nil.
func OpenLog(db *storage.Storage, bus *Bus) (*Log, error) {
	l := &Log{db: db, bus: bus, next: 1}

	data, err := db.Get(keyNextSeq)
	if err != nil {
		return nil, fmt.Errorf("read event sequence:\n%w", err)
	}

	if len(data) == 8 {
		l.next = binary.BigEndian.Uint64(data)
	}

	return l, nil
}

// Stage assigns sequence numbers and ids to evs and writes them into b.
// The log position only advances on Commit, so a discarded batch leaves no
// trace. Callers must serialize Stage/Commit pairs.
func (l *Log) Stage(b *storage.Batch, evs []Event) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.next
	stamped := make([]Event, len(evs))

	for i, ev := range evs {
		ev.Seq = seq
		ev.ID = uuid.New()

		data, err := cbor.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("encode event %s:\n%w", ev.Kind, err)
		}

		b.Set(eventKey(seq), data)
		stamped[i] = ev
		seq++
	}

	b.Set(keyNextSeq, seqBytes(seq))

	return stamped, nil
}

// Unstage reverses a committed Stage whose operation was rolled back.
func (l *Log) Unstage(b *storage.Batch, evs []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ev := range evs {
		b.Delete(eventKey(ev.Seq))
	}

	b.Set(keyNextSeq, seqBytes(l.next))
}

// Commit advances the log past evs and publishes them.
func (l *Log) Commit(evs []Event) {
	if len(evs) == 0 {
		return
	}

	l.mu.Lock()
	l.next = evs[len(evs)-1].Seq + 1
	l.mu.Unlock()

	if l.bus != nil {
		for _, ev := range evs {
			l.bus.Publish(ev)
		}
	}
}

// Since returns up to limit committed events with Seq >= from, in order.
// A non-positive limit returns every remaining event.
func (l *Log) Since(from uint64, limit int) ([]Event, error) {
	var out []Event

	l.mu.Lock()
	next := l.next
	l.mu.Unlock()

	errStop := errors.New("stop")

	err := l.db.IterateFrom(prefixEvent, eventKey(from), func(key, value []byte) error {
		if limit > 0 && len(out) >= limit {
			return errStop
		}

		var ev Event
		if err := cbor.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("decode event %x:\n%w", key, err)
		}

		// Staged but not yet committed events are invisible.
		if ev.Seq >= next {
			return errStop
		}

		out = append(out, ev)

		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}

	return out, nil
}

// Next returns the sequence number the next event will receive.
func (l *Log) Next() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.next
}

// eventKey returns "e:" + big-endian seq so keys sort by sequence.
func eventKey(seq uint64) []byte {
	key := make([]byte, len(prefixEvent)+8)
	copy(key, prefixEvent)
	binary.BigEndian.PutUint64(key[len(prefixEvent):], seq)

	return key
}

func seqBytes(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)

	return buf
}
