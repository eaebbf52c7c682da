// Package snapshot exports and restores the node's full ledger state: the
// auction registry, bid ledger, counters and event log.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"Dauction/internal/storage"
	"Dauction/internal/types"
)

// version is the current snapshot format version.
const version = 1

var (
	// ErrChecksum is returned when a snapshot's content does not match its checksum.
	ErrChecksum = errors.New("snapshot checksum mismatch")

	// ErrNotEmpty is returned when restoring into a store that already holds state.
	ErrNotEmpty = errors.New("storage is not empty")
)

// entry is one stored key-value pair.
type entry struct {
	key   []byte
	value []byte
}

// Info describes a snapshot.
type Info struct {
	Version  uint32
	Entries  int
	Checksum [32]byte
}

// Create exports every key in db as a zstd-compressed snapshot.
func Create(db *storage.Storage) ([]byte, Info, error) {
	entries, err := collect(db)
	if err != nil {
		return nil, Info{}, fmt.Errorf("collect entries:\n%w", err)
	}

	raw, info := build(entries)

	data, err := compress(raw)
	if err != nil {
		return nil, Info{}, err
	}

	return data, info, nil
}

// collect copies every key-value pair out of db.
func collect(db *storage.Storage) ([]entry, error) {
	var entries []entry

	err := db.Iterate(func(key, value []byte) error {
		entries = append(entries, entry{
			key:   append([]byte{}, key...),
			value: append([]byte{}, value...),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// build sorts entries and encodes them with their checksum.
func build(entries []entry) ([]byte, Info) {
	sortEntries(entries)
	checksum := computeChecksum(version, entries)

	builder := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		k := builder.CreateByteVector(e.key)
		v := builder.CreateByteVector(e.value)

		types.SnapshotEntryStart(builder)
		types.SnapshotEntryAddKey(builder, k)
		types.SnapshotEntryAddValue(builder, v)
		offsets[i] = types.SnapshotEntryEnd(builder)
	}

	types.SnapshotStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entriesVector := builder.EndVector(len(offsets))

	checksumOffset := builder.CreateByteVector(checksum[:])

	types.SnapshotStart(builder)
	types.SnapshotAddVersion(builder, version)
	types.SnapshotAddChecksum(builder, checksumOffset)
	types.SnapshotAddEntries(builder, entriesVector)
	builder.Finish(types.SnapshotEnd(builder))

	return builder.FinishedBytes(), Info{Version: version, Entries: len(entries), Checksum: checksum}
}

func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
}

// computeChecksum hashes version followed by each length-prefixed key and
// value, in key order.
func computeChecksum(v uint32, entries []entry) [32]byte {
	hasher := blake3.New()

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	hasher.Write(buf[:])

	for _, e := range entries {
		binary.BigEndian.PutUint32(buf[:], uint32(len(e.key)))
		hasher.Write(buf[:])
		hasher.Write(e.key)

		binary.BigEndian.PutUint32(buf[:], uint32(len(e.value)))
		hasher.Write(buf[:])
		hasher.Write(e.value)
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return checksum
}

func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

// Apply verifies a snapshot produced by Create and writes it into db in one
// batch. db must be empty.
func Apply(db *storage.Storage, data []byte) (Info, error) {
	raw, err := decompress(data)
	if err != nil {
		return Info{}, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	entries, info, err := parse(raw)
	if err != nil {
		return Info{}, err
	}

	empty := true
	errStop := errors.New("stop")
	err = db.Iterate(func(_, _ []byte) error {
		empty = false
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return Info{}, fmt.Errorf("check storage:\n%w", err)
	}

	if !empty {
		return Info{}, ErrNotEmpty
	}

	pairs := make([]storage.KeyValue, len(entries))
	for i, e := range entries {
		pairs[i] = storage.KeyValue{Key: e.key, Value: e.value}
	}

	if err := db.SetBatch(pairs); err != nil {
		return Info{}, fmt.Errorf("write entries:\n%w", err)
	}

	return info, nil
}

// parse decodes a snapshot and checks its version and checksum.
func parse(raw []byte) (entries []entry, info Info, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt snapshot: %v", r)
		}
	}()

	snap := types.GetRootAsSnapshot(raw, 0)

	if snap.Version() != version {
		return nil, Info{}, fmt.Errorf("unsupported snapshot version %d", snap.Version())
	}

	stored := snap.ChecksumBytes()
	if len(stored) != 32 {
		return nil, Info{}, fmt.Errorf("invalid checksum length: %d", len(stored))
	}

	entries = make([]entry, snap.EntriesLength())
	var e types.SnapshotEntry

	for i := range entries {
		if !snap.Entries(&e, i) {
			return nil, Info{}, fmt.Errorf("read entry %d", i)
		}

		entries[i] = entry{
			key:   append([]byte{}, e.KeyBytes()...),
			value: append([]byte{}, e.ValueBytes()...),
		}
	}

	sortEntries(entries)
	computed := computeChecksum(snap.Version(), entries)

	if !bytes.Equal(computed[:], stored) {
		return nil, Info{}, ErrChecksum
	}

	return entries, Info{Version: snap.Version(), Entries: len(entries), Checksum: computed}, nil
}
