package auction

import (
	"fmt"

	"Dauction/internal/storage"
	"Dauction/internal/types"
)

// ledger stores per-auction bids and the insertion-ordered bidder index.
type ledger struct {
	db *storage.Storage
}

// index returns the auction's bidders in commit order and the number of
// reveals so far. ok is false when no bid was ever recorded.
func (l *ledger) index(id [32]byte) (bidders []types.Address, reveals uint64, ok bool, err error) {
	data, err := l.db.Get(indexKey(id))
	if err != nil {
		return nil, 0, false, fmt.Errorf("read bidder index:\n%w", err)
	}

	if data == nil {
		return nil, 0, false, nil
	}

	bidders, reveals, err = decodeIndex(data)
	if err != nil {
		return nil, 0, false, err
	}

	return bidders, reveals, len(bidders) > 0, nil
}

func (l *ledger) putIndex(t *txn, id [32]byte, bidders []types.Address, reveals uint64) error {
	return t.set(indexKey(id), encodeIndex(bidders, reveals))
}

// bid returns bidder's record. ok is false if the bidder never committed.
func (l *ledger) bid(id [32]byte, bidder types.Address) (Bid, bool, error) {
	data, err := l.db.Get(bidKey(id, bidder))
	if err != nil {
		return Bid{}, false, fmt.Errorf("read bid %s:\n%w", bidder, err)
	}

	if data == nil {
		return Bid{}, false, nil
	}

	b, err := decodeBid(data)
	if err != nil {
		return Bid{}, false, err
	}

	return b, true, nil
}

func (l *ledger) putBid(t *txn, id [32]byte, b Bid) error {
	return t.set(bidKey(id, b.Bidder), encodeBid(b))
}

// clear stages the removal of every bid and the index.
func (l *ledger) clear(t *txn, id [32]byte, bidders []types.Address) error {
	for _, b := range bidders {
		if err := t.del(bidKey(id, b)); err != nil {
			return err
		}
	}

	return t.del(indexKey(id))
}
