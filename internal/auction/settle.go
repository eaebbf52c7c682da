package auction

import (
	"context"
	"fmt"
	"math/big"

	"Dauction/internal/events"
	"Dauction/internal/logger"
	"Dauction/internal/types"
)

// Settlement is the outcome of a settled auction.
// Winner is zero when no revealed bid qualified and the asset went back to
// the owner.
type Settlement struct {
	Key    Key
	Owner  types.Address
	Winner types.Address
	Token  types.Address
	Amount *big.Int // Amount is the winning bid in the bid token's units
	Value  *big.Int // Value is Amount normalized to the 18-decimal unit
}

// Settled reports whether the asset was sold.
func (s Settlement) Settled() bool {
	return !s.Winner.IsZero()
}

// candidate is a revealed bid with its normalized value.
type candidate struct {
	bid   Bid
	value *big.Int
}

// SettleAuction closes an auction after its reveal deadline. The highest
// normalized revealed bid at or above the minimum price buys the asset;
// without one the asset returns to the owner. Either way the slot is
// cleared and may host a new auction. A failed seller payout is the one
// error returned with a non-empty Settlement: the sale stands.
func (m *Machine) SettleAuction(ctx context.Context, caller types.Address, key Key) (Settlement, error) {
	ctx, leave, err := m.enter(ctx, caller)
	if err != nil {
		return Settlement{}, err
	}
	defer leave()

	a, ok, err := m.registry.get(key)
	if err != nil {
		return Settlement{}, err
	}

	if !ok {
		return Settlement{}, ErrNonexistentAuction
	}

	if caller != a.Owner {
		return Settlement{}, ErrNotAuctionOwner
	}

	now := m.now()
	if now < a.RevealDeadline {
		return Settlement{}, ErrRevealPhaseNotOver
	}

	id := key.ID()

	bidders, _, _, err := m.ledger.index(id)
	if err != nil {
		return Settlement{}, err
	}

	best, err := m.selectWinner(ctx, a, id, bidders)
	if err != nil {
		return Settlement{}, err
	}

	asset, err := m.assets.AssetContract(a.Contract)
	if err != nil {
		return Settlement{}, fmt.Errorf("%w: resolve %s:\n%w", ErrTransferFailed, a.Contract, err)
	}

	t := newTxn(m.db, m.sink)
	defer t.close()

	if err := m.ledger.clear(t, id, bidders); err != nil {
		return Settlement{}, err
	}

	if err := m.registry.clear(t, key); err != nil {
		return Settlement{}, err
	}

	if best == nil {
		return m.returnAsset(ctx, t, a, asset, now)
	}

	return m.sell(ctx, t, a, asset, best, now)
}

// selectWinner returns the revealed bid with the greatest normalized value
// that meets the minimum price, or nil. Equal values keep the earlier
// reveal.
func (m *Machine) selectWinner(ctx context.Context, a Auction, id [32]byte, bidders []types.Address) (*candidate, error) {
	var best *candidate

	for _, bidder := range bidders {
		bid, ok, err := m.ledger.bid(id, bidder)
		if err != nil {
			return nil, err
		}

		if !ok || !bid.Revealed {
			continue
		}

		tok, ok := m.tokens.Lookup(bid.Token)
		if !ok {
			return nil, fmt.Errorf("%w: bid by %s in %s", ErrInvalidBidToken, bidder, bid.Token)
		}

		value, err := m.pricing.Normalize(ctx, tok.Feed, tok.Decimals, bid.Amount)
		if err != nil {
			return nil, fmt.Errorf("value bid by %s:\n%w", bidder, err)
		}

		if value.Cmp(a.MinBidPrice) < 0 {
			logger.Debug("bid below minimum", "auction", a.Key(), "bidder", bidder, "value", value)
			continue
		}

		switch {
		case best == nil:
		case value.Cmp(best.value) > 0:
		case value.Cmp(best.value) == 0 && bid.RevealSeq < best.bid.RevealSeq:
		default:
			continue
		}

		best = &candidate{bid: bid, value: value}
	}

	return best, nil
}

// returnAsset commits the cleared slot and sends the escrowed asset back to
// its owner.
func (m *Machine) returnAsset(ctx context.Context, t *txn, a Auction, asset AssetContract, now uint64) (Settlement, error) {
	key := a.Key()

	t.emit(events.Event{
		Kind:     events.AuctionUnsettled,
		Contract: a.Contract,
		AssetID:  a.AssetID,
		Owner:    a.Owner,
		At:       now,
	})

	if err := t.commit(); err != nil {
		return Settlement{}, fmt.Errorf("settle %s:\n%w", key, err)
	}

	if err := asset.TransferFrom(ctx, m.params.Self, m.params.Self, a.Owner, a.AssetID); err != nil {
		m.undo(t, "settle", key)
		return Settlement{}, fmt.Errorf("%w: return asset %s:\n%w", ErrTransferFailed, key, err)
	}

	t.publish()

	logger.Info("auction unsettled", "auction", key, "owner", a.Owner)

	return Settlement{Key: key, Owner: a.Owner}, nil
}

// sell commits the cleared slot, then escrows the winner's payment, hands
// over the asset and pays the owner. Every step before the payout is undone
// on failure.
//
// A failed delivery refunds the payment with a plain transfer. The escrow
// cannot grant itself an allowance, so the winner's spent allowance is not
// restored and a retried settlement needs a fresh approval.
//
// A failed payout happens after the asset changed hands and cannot be
// undone. The settlement stands, its events are published, and the returned
// ErrTransferFailed reports the payment held in escrow alongside the
// Settlement.
func (m *Machine) sell(ctx context.Context, t *txn, a Auction, asset AssetContract, best *candidate, now uint64) (Settlement, error) {
	key := a.Key()
	winner := best.bid.Bidder
	amount := best.bid.Amount

	if err := m.checkSolvency(ctx, best.bid.Token, winner, amount); err != nil {
		return Settlement{}, err
	}

	erc20, err := m.erc20.TokenContract(best.bid.Token)
	if err != nil {
		return Settlement{}, fmt.Errorf("%w: resolve token %s:\n%w", ErrTransferFailed, best.bid.Token, err)
	}

	t.emit(events.Event{
		Kind:     events.AuctionSettled,
		Contract: a.Contract,
		AssetID:  a.AssetID,
		Owner:    a.Owner,
		Winner:   winner,
		Amount:   amount,
		At:       now,
	})

	if err := t.commit(); err != nil {
		return Settlement{}, fmt.Errorf("settle %s:\n%w", key, err)
	}

	self := m.params.Self

	if err := erc20.TransferFrom(ctx, self, winner, self, amount); err != nil {
		m.undo(t, "settle", key)
		return Settlement{}, fmt.Errorf("%w: collect payment from %s:\n%w", ErrTransferFailed, winner, err)
	}

	if err := asset.TransferFrom(ctx, self, self, winner, a.AssetID); err != nil {
		if rerr := erc20.Transfer(ctx, self, winner, amount); rerr != nil {
			logger.Error("payment refund failed", "auction", key, "winner", winner, "amount", amount, "error", rerr)
		}
		m.undo(t, "settle", key)
		return Settlement{}, fmt.Errorf("%w: deliver asset %s:\n%w", ErrTransferFailed, key, err)
	}

	payoutErr := erc20.Transfer(ctx, self, a.Owner, amount)

	t.publish()

	logger.Info("auction settled",
		"auction", key,
		"owner", a.Owner,
		"winner", winner,
		"token", best.bid.Token,
		"amount", amount,
		"value", best.value,
	)

	st := Settlement{
		Key:    key,
		Owner:  a.Owner,
		Winner: winner,
		Token:  best.bid.Token,
		Amount: amount,
		Value:  best.value,
	}

	if payoutErr != nil {
		logger.Error("seller payout failed, payment held in escrow",
			"auction", key,
			"owner", a.Owner,
			"token", best.bid.Token,
			"amount", amount,
			"error", payoutErr,
		)

		return st, fmt.Errorf("%w: pay %s to %s, held in escrow %s:\n%w", ErrTransferFailed, amount, a.Owner, self, payoutErr)
	}

	return st, nil
}
