package auction

import (
	"context"
	"math/big"

	"Dauction/internal/types"
)

// Auction returns the record for key, or the empty record when the slot is
// unset.
func (m *Machine) Auction(key Key) (Auction, error) {
	a, _, err := m.registry.get(key)
	return a, err
}

// Auctions lists every live auction.
func (m *Machine) Auctions() ([]Auction, error) {
	return m.registry.list()
}

// AuctionStatus returns the slot's status. Unset slots are None.
func (m *Machine) AuctionStatus(key Key) (Status, error) {
	a, _, err := m.registry.get(key)
	if err != nil {
		return StatusNone, err
	}

	return a.Status, nil
}

// Bidders returns the auction's bidders in commit order.
func (m *Machine) Bidders(key Key) ([]types.Address, error) {
	bidders, _, ok, err := m.ledger.index(key.ID())
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrNoBids
	}

	return bidders, nil
}

// Bid returns bidder's record. An auction with bids returns the empty record
// for a bidder who never committed.
func (m *Machine) Bid(key Key, bidder types.Address) (Bid, error) {
	id := key.ID()

	_, _, ok, err := m.ledger.index(id)
	if err != nil {
		return Bid{}, err
	}

	if !ok {
		return Bid{}, ErrNoBids
	}

	b, found, err := m.ledger.bid(id, bidder)
	if err != nil {
		return Bid{}, err
	}

	if !found {
		return Bid{Amount: new(big.Int)}, nil
	}

	return b, nil
}

// TotalAuctions returns how many auctions were ever created.
func (m *Machine) TotalAuctions() (uint64, error) {
	return m.registry.total()
}

// CalculateBasePrice values amount through feed. A zero feed is the
// reference token and returns amount unchanged.
func (m *Machine) CalculateBasePrice(ctx context.Context, feed types.Address, amount *big.Int) (*big.Int, error) {
	return m.pricing.BasePrice(ctx, feed, amount)
}

// LatestPrice returns the feed's current price and decimals.
func (m *Machine) LatestPrice(ctx context.Context, feed types.Address) (*big.Int, uint8, error) {
	return m.pricing.LatestPrice(ctx, feed)
}

// AcceptedTokens returns the accepted bid tokens.
func (m *Machine) AcceptedTokens() []AcceptedToken {
	return m.tokens.All()
}

// BidTokenFeed returns token's price feed. The reference token has none.
func (m *Machine) BidTokenFeed(token types.Address) (types.Address, error) {
	return m.tokens.Feed(token)
}

// IsReferenceToken reports whether token settles 1:1 without an oracle.
func (m *Machine) IsReferenceToken(token types.Address) bool {
	return m.tokens.IsReference(token)
}
