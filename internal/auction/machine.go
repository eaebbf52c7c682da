// Package auction implements the sealed-bid auction state machine: the
// auction registry, the per-auction bid ledger and the lifecycle operations
// that move an auction from creation through commit, reveal and settlement.
package auction

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"Dauction/internal/commitment"
	"Dauction/internal/events"
	"Dauction/internal/logger"
	"Dauction/internal/pricing"
	"Dauction/internal/storage"
	"Dauction/internal/types"
)

// DefaultMinBiddingDuration is the shortest bidding window accepted when
// Params leaves it unset.
const DefaultMinBiddingDuration = time.Hour

// Params are the machine's fixed identities and policy.
type Params struct {
	Self               types.Address // Self is the escrow identity holding assets and payments
	Operator           types.Address // Operator deployed the marketplace and may not bid
	MinBiddingDuration time.Duration // MinBiddingDuration bounds end-start from below
}

// Option configures the Machine during creation.
type Option func(*Machine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// Machine runs auction operations one at a time against the registry and
// ledger. Queries read committed state and do not take the lock.
type Machine struct {
	mu sync.Mutex

	db       *storage.Storage
	registry registry
	ledger   ledger

	tokens  *TokenRegistry
	pricing *pricing.Normalizer
	assets  Assets
	erc20   Tokens
	sink    EventSink
	clock   Clock
	params  Params
}

// New creates a Machine. sink may be nil, in which case events are dropped.
func New(db *storage.Storage, tokens *TokenRegistry, normalizer *pricing.Normalizer, assets Assets, erc20 Tokens, sink EventSink, params Params, opts ...Option) (*Machine, error) {
	switch {
	case db == nil:
		return nil, errors.New("storage is required")
	case tokens == nil:
		return nil, errors.New("token registry is required")
	case normalizer == nil:
		return nil, errors.New("price normalizer is required")
	case assets == nil || erc20 == nil:
		return nil, errors.New("asset and token resolvers are required")
	case params.Self.IsZero():
		return nil, errors.New("escrow identity is required")
	}

	if params.MinBiddingDuration <= 0 {
		params.MinBiddingDuration = DefaultMinBiddingDuration
	}

	m := &Machine{
		db:       db,
		registry: registry{db: db},
		ledger:   ledger{db: db},
		tokens:   tokens,
		pricing:  normalizer,
		assets:   assets,
		erc20:    erc20,
		sink:     sink,
		clock:    SystemClock{},
		params:   params,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Params returns the machine's identities and policy.
func (m *Machine) Params() Params {
	return m.params
}

// callKey marks a context as already running inside a machine operation.
type callKey struct{}

// enter serializes mutating operations. A collaborator calling back into the
// machine with the operation's context is rejected instead of deadlocking.
func (m *Machine) enter(ctx context.Context, caller types.Address) (context.Context, func(), error) {
	if owner, _ := ctx.Value(callKey{}).(*Machine); owner == m {
		return nil, nil, ErrReentrantCall
	}

	if caller.IsZero() {
		return nil, nil, ErrMissingCaller
	}

	m.mu.Lock()

	return context.WithValue(ctx, callKey{}, m), m.mu.Unlock, nil
}

// now returns the clock in Unix seconds.
func (m *Machine) now() uint64 {
	sec := m.clock.Now().Unix()
	if sec < 0 {
		return 0
	}

	return uint64(sec)
}

// undo rolls back a committed operation after a failed transfer. A rollback
// failure leaves storage ahead of the collaborators and is logged loudly.
func (m *Machine) undo(t *txn, op string, key Key) {
	if err := t.rollback(); err != nil {
		logger.Error("rollback failed", "op", op, "auction", key, "error", err)
	}
}

// CreateParams describes a new auction.
type CreateParams struct {
	Contract       types.Address
	AssetID        *big.Int
	MinBidPrice    *big.Int
	StartTime      uint64
	EndTime        uint64
	RevealDeadline uint64
}

// CreateAuction opens an auction for an asset owned by caller and pulls the
// asset into escrow.
func (m *Machine) CreateAuction(ctx context.Context, caller types.Address, p CreateParams) (Auction, error) {
	ctx, leave, err := m.enter(ctx, caller)
	if err != nil {
		return Auction{}, err
	}
	defer leave()

	if p.AssetID == nil || p.MinBidPrice == nil {
		return Auction{}, fmt.Errorf("%w: asset id and min bid price are required", ErrInvalidAmount)
	}

	if err := types.CheckUint256(p.AssetID); err != nil {
		return Auction{}, fmt.Errorf("%w: asset id:\n%w", ErrInvalidAmount, err)
	}

	if err := types.CheckUint256(p.MinBidPrice); err != nil {
		return Auction{}, fmt.Errorf("%w: min bid price:\n%w", ErrInvalidAmount, err)
	}

	key := NewKey(p.Contract, p.AssetID)

	asset, err := m.assets.AssetContract(p.Contract)
	if err != nil {
		return Auction{}, fmt.Errorf("%w: resolve %s:\n%w", ErrNotOwner, p.Contract, err)
	}

	owner, err := asset.OwnerOf(ctx, p.AssetID)
	if err != nil {
		return Auction{}, fmt.Errorf("%w: owner of %s:\n%w", ErrNotOwner, key, err)
	}

	if owner != caller {
		return Auction{}, ErrNotOwner
	}

	if _, ok, err := m.registry.get(key); err != nil {
		return Auction{}, err
	} else if ok {
		return Auction{}, ErrAuctionExists
	}

	now := m.now()

	if p.StartTime < now {
		return Auction{}, ErrInvalidStartTime
	}

	if p.MinBidPrice.Sign() == 0 {
		return Auction{}, ErrZeroPrice
	}

	minDuration := uint64(m.params.MinBiddingDuration / time.Second)
	if p.EndTime <= p.StartTime || p.EndTime-p.StartTime < minDuration {
		return Auction{}, ErrInvalidEndTime
	}

	if p.RevealDeadline <= p.EndTime {
		return Auction{}, ErrInvalidRevealWindow
	}

	a := Auction{
		Contract:       p.Contract,
		AssetID:        new(big.Int).Set(p.AssetID),
		Owner:          caller,
		MinBidPrice:    new(big.Int).Set(p.MinBidPrice),
		StartTime:      p.StartTime,
		EndTime:        p.EndTime,
		RevealDeadline: p.RevealDeadline,
		Status:         StatusActive,
		CreatedAt:      now,
	}

	t := newTxn(m.db, m.sink)
	defer t.close()

	if err := m.registry.put(t, a); err != nil {
		return Auction{}, err
	}

	if err := m.registry.incrementTotal(t); err != nil {
		return Auction{}, err
	}

	t.emit(events.Event{
		Kind:           events.AuctionCreated,
		Contract:       a.Contract,
		AssetID:        a.AssetID,
		Owner:          caller,
		MinBidPrice:    a.MinBidPrice,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		RevealDeadline: a.RevealDeadline,
		At:             now,
	})

	if err := t.commit(); err != nil {
		return Auction{}, fmt.Errorf("create auction %s:\n%w", key, err)
	}

	if err := asset.TransferFrom(ctx, m.params.Self, caller, m.params.Self, p.AssetID); err != nil {
		m.undo(t, "create", key)
		return Auction{}, fmt.Errorf("%w: escrow asset %s:\n%w", ErrTransferFailed, key, err)
	}

	t.publish()

	logger.Info("auction created",
		"auction", key,
		"owner", caller,
		"minBidPrice", a.MinBidPrice,
		"start", a.StartTime,
		"end", a.EndTime,
		"revealDeadline", a.RevealDeadline,
	)

	return a, nil
}

// CreateBid records caller's sealed commitment to bid in token.
func (m *Machine) CreateBid(ctx context.Context, caller types.Address, key Key, bidCommitment types.Hash, token types.Address) error {
	_, leave, err := m.enter(ctx, caller)
	if err != nil {
		return err
	}
	defer leave()

	a, ok, err := m.registry.get(key)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNonexistentAuction
	}

	if err := commitment.Check(bidCommitment); err != nil {
		return err
	}

	if _, ok := m.tokens.Lookup(token); !ok {
		return ErrInvalidBidToken
	}

	now := m.now()

	if now < a.StartTime {
		return ErrNotStarted
	}

	if now >= a.EndTime {
		return ErrEnded
	}

	if caller == a.Owner {
		return ErrSellerCannotBid
	}

	if caller == m.params.Operator {
		return ErrOperatorCannotBid
	}

	id := key.ID()

	if _, exists, err := m.ledger.bid(id, caller); err != nil {
		return err
	} else if exists {
		return ErrDuplicateCommitment
	}

	bidders, reveals, _, err := m.ledger.index(id)
	if err != nil {
		return err
	}

	unveil := commitment.Unveil(caller, bidCommitment, token)

	t := newTxn(m.db, m.sink)
	defer t.close()

	err = m.ledger.putBid(t, id, Bid{
		Bidder:     caller,
		Commitment: unveil,
		Token:      token,
		Amount:     new(big.Int),
		CreatedAt:  now,
	})
	if err != nil {
		return err
	}

	if err := m.ledger.putIndex(t, id, append(bidders, caller), reveals); err != nil {
		return err
	}

	if a.Status == StatusActive {
		a.Status = StatusBidded
		if err := m.registry.put(t, a); err != nil {
			return err
		}
	}

	t.emit(events.Event{
		Kind:       events.BidCreated,
		Contract:   key.Contract,
		AssetID:    key.AssetID,
		Bidder:     caller,
		Commitment: bidCommitment,
		At:         now,
	})

	if err := t.commit(); err != nil {
		return fmt.Errorf("create bid on %s:\n%w", key, err)
	}

	t.publish()

	logger.Info("bid committed", "auction", key, "bidder", caller, "token", token)

	return nil
}

// RevealBid opens caller's sealed bid. The bid must match the stored
// commitment and caller must already hold and have approved the amount.
func (m *Machine) RevealBid(ctx context.Context, caller types.Address, key Key, amount *big.Int, salt types.Hash) error {
	ctx, leave, err := m.enter(ctx, caller)
	if err != nil {
		return err
	}
	defer leave()

	if amount == nil || amount.Sign() == 0 {
		return ErrZeroBidValue
	}

	if err := types.CheckUint256(amount); err != nil {
		return fmt.Errorf("%w:\n%w", ErrInvalidAmount, err)
	}

	a, ok, err := m.registry.get(key)
	if err != nil {
		return err
	}

	now := m.now()

	if !ok || now < a.EndTime {
		if ok {
			return fmt.Errorf("%w: auction not ended yet", ErrNotInRevealPhase)
		}
		return ErrNotInRevealPhase
	}

	if now >= a.RevealDeadline {
		return ErrNotInRevealPhase
	}

	id := key.ID()

	bid, exists, err := m.ledger.bid(id, caller)
	if err != nil {
		return err
	}

	if !exists {
		return ErrNoBidCommitment
	}

	if bid.Revealed {
		return ErrAlreadyRevealed
	}

	if err := commitment.Verify(caller, bid.Commitment, bid.Token, amount, salt); err != nil {
		return err
	}

	if err := m.checkSolvency(ctx, bid.Token, caller, amount); err != nil {
		return err
	}

	bidders, reveals, _, err := m.ledger.index(id)
	if err != nil {
		return err
	}

	reveals++
	bid.Amount = new(big.Int).Set(amount)
	bid.Revealed = true
	bid.RevealSeq = reveals

	t := newTxn(m.db, m.sink)
	defer t.close()

	if err := m.ledger.putBid(t, id, bid); err != nil {
		return err
	}

	if err := m.ledger.putIndex(t, id, bidders, reveals); err != nil {
		return err
	}

	if a.Status != StatusRevealed {
		a.Status = StatusRevealed
		if err := m.registry.put(t, a); err != nil {
			return err
		}
	}

	t.emit(events.Event{
		Kind:     events.BidRevealed,
		Contract: key.Contract,
		AssetID:  key.AssetID,
		Bidder:   caller,
		Unveil:   bid.Commitment,
		Salt:     salt,
		Amount:   bid.Amount,
		At:       now,
	})

	if err := t.commit(); err != nil {
		return fmt.Errorf("reveal bid on %s:\n%w", key, err)
	}

	t.publish()

	logger.Info("bid revealed", "auction", key, "bidder", caller, "token", bid.Token, "amount", amount, "seq", reveals)

	return nil
}

// checkSolvency requires holder to have at least amount of token and to
// have approved the escrow for it.
func (m *Machine) checkSolvency(ctx context.Context, token, holder types.Address, amount *big.Int) error {
	erc20, err := m.erc20.TokenContract(token)
	if err != nil {
		return fmt.Errorf("%w: resolve token %s:\n%w", ErrInsufficientBalanceOrApproval, token, err)
	}

	balance, err := erc20.BalanceOf(ctx, holder)
	if err != nil {
		return fmt.Errorf("%w: balance of %s:\n%w", ErrInsufficientBalanceOrApproval, holder, err)
	}

	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient token balance", ErrInsufficientBalanceOrApproval)
	}

	allowance, err := erc20.Allowance(ctx, holder, m.params.Self)
	if err != nil {
		return fmt.Errorf("%w: allowance of %s:\n%w", ErrInsufficientBalanceOrApproval, holder, err)
	}

	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: low token allowance", ErrInsufficientBalanceOrApproval)
	}

	return nil
}
