package auction

import (
	"encoding/binary"
	"fmt"

	"Dauction/internal/storage"
)

// registry is the keyed store of auction records.
type registry struct {
	db *storage.Storage
}

// get returns the record for key. ok is false for an unset slot.
func (r *registry) get(key Key) (Auction, bool, error) {
	data, err := r.db.Get(auctionKey(key.ID()))
	if err != nil {
		return emptyAuction(), false, fmt.Errorf("read auction %s:\n%w", key, err)
	}

	if data == nil {
		return emptyAuction(), false, nil
	}

	a, err := decodeAuction(data)
	if err != nil {
		return emptyAuction(), false, err
	}

	return a, a.Exists(), nil
}

// put stages a record write.
func (r *registry) put(t *txn, a Auction) error {
	return t.set(auctionKey(a.Key().ID()), encodeAuction(a))
}

// clear stages the removal of a record, returning the slot to None.
func (r *registry) clear(t *txn, key Key) error {
	return t.del(auctionKey(key.ID()))
}

// total returns the number of auctions ever created.
func (r *registry) total() (uint64, error) {
	data, err := r.db.Get(keyTotal)
	if err != nil {
		return 0, fmt.Errorf("read total auctions:\n%w", err)
	}

	if len(data) != 8 {
		return 0, nil
	}

	return binary.BigEndian.Uint64(data), nil
}

// incrementTotal stages total+1.
func (r *registry) incrementTotal(t *txn) error {
	n, err := r.total()
	if err != nil {
		return err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n+1)

	return t.set(keyTotal, buf)
}

// list returns every live record in storage-id order.
func (r *registry) list() ([]Auction, error) {
	var out []Auction

	err := r.db.IteratePrefix(prefixAuction, func(key, value []byte) error {
		a, err := decodeAuction(value)
		if err != nil {
			return fmt.Errorf("decode %x:\n%w", key, err)
		}

		if a.Exists() {
			out = append(out, a)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list auctions:\n%w", err)
	}

	return out, nil
}
