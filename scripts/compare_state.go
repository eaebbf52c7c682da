//go:build ignore

package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"Dauction/internal/snapshot"
	"Dauction/internal/storage"
)

// kinds labels the key prefixes of an auction node's storage.
var kinds = []struct {
	prefix []byte
	name   string
}{
	{[]byte("a:"), "auctions"},
	{[]byte("b:"), "bids"},
	{[]byte("i:"), "bidder indexes"},
	{[]byte("e:"), "events"},
	{[]byte("m:"), "meta"},
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <db1_path> <db2_path>\n", os.Args[0])
		os.Exit(1)
	}

	db1Path := os.Args[1]
	db2Path := os.Args[2]

	db1, err := storage.New(db1Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db1: %v\n", err)
		os.Exit(1)
	}
	defer db1.Close()

	db2, err := storage.New(db2Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db2: %v\n", err)
		os.Exit(1)
	}
	defer db2.Close()

	_, info1, err := snapshot.Create(db1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot db1: %v\n", err)
		os.Exit(1)
	}

	_, info2, err := snapshot.Create(db2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot db2: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("DB1 (%s): %d entries, checksum %x\n", db1Path, info1.Entries, info1.Checksum[:8])
	fmt.Printf("DB2 (%s): %d entries, checksum %x\n", db2Path, info2.Entries, info2.Checksum[:8])

	if info1.Checksum == info2.Checksum {
		fmt.Println("\nStates are identical")
		os.Exit(0)
	}

	fmt.Println("\nStates differ:")

	for _, k := range kinds {
		missing1, missing2, different := compare(collect(db1, k.prefix), collect(db2, k.prefix))
		if len(missing1)+len(missing2)+len(different) == 0 {
			continue
		}

		fmt.Printf("  %s:\n", k.name)
		report("in DB1 but not in DB2", missing1)
		report("in DB2 but not in DB1", missing2)
		report("with different content", different)
	}

	os.Exit(1)
}

func collect(db *storage.Storage, prefix []byte) map[string][]byte {
	entries := make(map[string][]byte)

	db.IteratePrefix(prefix, func(key, value []byte) error {
		entries[string(key)] = bytes.Clone(value)
		return nil
	})

	return entries
}

func compare(m1, m2 map[string][]byte) (missing1, missing2, different []string) {
	for k, v1 := range m1 {
		v2, ok := m2[k]
		switch {
		case !ok:
			missing1 = append(missing1, k)
		case !bytes.Equal(v1, v2):
			different = append(different, k)
		}
	}

	for k := range m2 {
		if _, ok := m1[k]; !ok {
			missing2 = append(missing2, k)
		}
	}

	sort.Strings(missing1)
	sort.Strings(missing2)
	sort.Strings(different)

	return
}

func report(label string, keys []string) {
	if len(keys) == 0 {
		return
	}

	fmt.Printf("    - %d %s\n", len(keys), label)
	for _, k := range keys {
		fmt.Printf("        %s%x\n", k[:2], k[2:])
	}
}
