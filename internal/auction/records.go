package auction

import (
	"fmt"
	"math/big"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/zeebo/blake3"

	"Dauction/internal/types"
)

// Storage key prefixes.
var (
	prefixAuction = []byte("a:")
	prefixBid     = []byte("b:")
	prefixIndex   = []byte("i:")
	keyTotal      = []byte("m:total")
)

// Key identifies an auction slot: one per (asset contract, asset id).
type Key struct {
	Contract types.Address
	AssetID  *big.Int
}

// NewKey builds a Key, copying id.
func NewKey(contract types.Address, id *big.Int) Key {
	return Key{Contract: contract, AssetID: new(big.Int).Set(id)}
}

// ID returns blake3(contract || word(assetID)), the slot's storage id.
func (k Key) ID() [32]byte {
	word := types.Word(k.AssetID)

	var buf [types.AddressSize + 32]byte
	copy(buf[:types.AddressSize], k.Contract[:])
	copy(buf[types.AddressSize:], word[:])

	return blake3.Sum256(buf[:])
}

// String returns "contract/id" for logs.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Contract, k.AssetID)
}

// Status is the externally observable auction state.
type Status uint8

const (
	StatusNone Status = iota
	StatusActive
	StatusBidded
	StatusRevealed
	StatusSettled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusActive:
		return "Active"
	case StatusBidded:
		return "Bidded"
	case StatusRevealed:
		return "Revealed"
	case StatusSettled:
		return "Settled"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Auction is a registry record. The zero value (with zero amounts) is the
// unset slot.
type Auction struct {
	Contract       types.Address
	AssetID        *big.Int
	Owner          types.Address
	MinBidPrice    *big.Int
	StartTime      uint64
	EndTime        uint64
	RevealDeadline uint64
	Status         Status
	CreatedAt      uint64
}

// Key returns the auction's slot key.
func (a Auction) Key() Key {
	return Key{Contract: a.Contract, AssetID: a.AssetID}
}

// Exists reports whether the record is live.
func (a Auction) Exists() bool {
	return a.Status != StatusNone
}

// emptyAuction is the value returned for an unset slot.
func emptyAuction() Auction {
	return Auction{AssetID: new(big.Int), MinBidPrice: new(big.Int)}
}

// Bid is one bidder's record. Commitment holds the unveil hash binding the
// raw commitment to the bidder and token.
type Bid struct {
	Bidder     types.Address
	Commitment types.Hash
	Token      types.Address
	Amount     *big.Int
	Revealed   bool
	RevealSeq  uint64
	CreatedAt  uint64
}

func auctionKey(id [32]byte) []byte {
	return append(append([]byte{}, prefixAuction...), id[:]...)
}

func indexKey(id [32]byte) []byte {
	return append(append([]byte{}, prefixIndex...), id[:]...)
}

func bidKey(id [32]byte, bidder types.Address) []byte {
	key := make([]byte, 0, len(prefixBid)+32+types.AddressSize)
	key = append(key, prefixBid...)
	key = append(key, id[:]...)

	return append(key, bidder[:]...)
}

// encodeAuction serializes an Auction record.
func encodeAuction(a Auction) []byte {
	builder := flatbuffers.NewBuilder(256)

	contract := builder.CreateByteVector(a.Contract[:])
	assetID := builder.CreateByteVector(types.AmountBytes(a.AssetID))
	owner := builder.CreateByteVector(a.Owner[:])
	minBid := builder.CreateByteVector(types.AmountBytes(a.MinBidPrice))

	types.AuctionStart(builder)
	types.AuctionAddContract(builder, contract)
	types.AuctionAddAssetId(builder, assetID)
	types.AuctionAddOwner(builder, owner)
	types.AuctionAddMinBidPrice(builder, minBid)
	types.AuctionAddStartTime(builder, a.StartTime)
	types.AuctionAddEndTime(builder, a.EndTime)
	types.AuctionAddRevealDeadline(builder, a.RevealDeadline)
	types.AuctionAddStatus(builder, byte(a.Status))
	types.AuctionAddCreatedAt(builder, a.CreatedAt)
	builder.Finish(types.AuctionEnd(builder))

	return builder.FinishedBytes()
}

// decodeAuction parses an Auction record.
func decodeAuction(data []byte) (a Auction, err error) {
	defer recoverDecode("auction", &err)

	fb := types.GetRootAsAuction(data, 0)

	if a.Contract, err = types.AddressFromBytes(fb.ContractBytes()); err != nil {
		return a, fmt.Errorf("auction contract:\n%w", err)
	}

	if a.Owner, err = types.AddressFromBytes(fb.OwnerBytes()); err != nil {
		return a, fmt.Errorf("auction owner:\n%w", err)
	}

	a.AssetID = types.AmountFromBytes(fb.AssetIdBytes())
	a.MinBidPrice = types.AmountFromBytes(fb.MinBidPriceBytes())
	a.StartTime = fb.StartTime()
	a.EndTime = fb.EndTime()
	a.RevealDeadline = fb.RevealDeadline()
	a.Status = Status(fb.Status())
	a.CreatedAt = fb.CreatedAt()

	return a, nil
}

// encodeBid serializes a Bid record.
func encodeBid(b Bid) []byte {
	builder := flatbuffers.NewBuilder(192)

	bidder := builder.CreateByteVector(b.Bidder[:])
	commit := builder.CreateByteVector(b.Commitment[:])
	token := builder.CreateByteVector(b.Token[:])
	amount := builder.CreateByteVector(types.AmountBytes(b.Amount))

	types.BidStart(builder)
	types.BidAddBidder(builder, bidder)
	types.BidAddCommitment(builder, commit)
	types.BidAddBidToken(builder, token)
	types.BidAddAmount(builder, amount)
	types.BidAddRevealed(builder, b.Revealed)
	types.BidAddRevealSeq(builder, b.RevealSeq)
	types.BidAddCreatedAt(builder, b.CreatedAt)
	builder.Finish(types.BidEnd(builder))

	return builder.FinishedBytes()
}

// decodeBid parses a Bid record.
func decodeBid(data []byte) (b Bid, err error) {
	defer recoverDecode("bid", &err)

	fb := types.GetRootAsBid(data, 0)

	if b.Bidder, err = types.AddressFromBytes(fb.BidderBytes()); err != nil {
		return b, fmt.Errorf("bid bidder:\n%w", err)
	}

	if b.Commitment, err = types.HashFromBytes(fb.CommitmentBytes()); err != nil {
		return b, fmt.Errorf("bid commitment:\n%w", err)
	}

	if b.Token, err = types.AddressFromBytes(fb.BidTokenBytes()); err != nil {
		return b, fmt.Errorf("bid token:\n%w", err)
	}

	b.Amount = types.AmountFromBytes(fb.AmountBytes())
	b.Revealed = fb.Revealed()
	b.RevealSeq = fb.RevealSeq()
	b.CreatedAt = fb.CreatedAt()

	return b, nil
}

// encodeIndex serializes the bidder index.
func encodeIndex(bidders []types.Address, reveals uint64) []byte {
	flat := make([]byte, 0, len(bidders)*types.AddressSize)
	for _, b := range bidders {
		flat = append(flat, b[:]...)
	}

	builder := flatbuffers.NewBuilder(len(flat) + 32)
	vec := builder.CreateByteVector(flat)

	types.BidderIndexStart(builder)
	types.BidderIndexAddBidders(builder, vec)
	types.BidderIndexAddReveals(builder, reveals)
	builder.Finish(types.BidderIndexEnd(builder))

	return builder.FinishedBytes()
}

// decodeIndex parses the bidder index.
func decodeIndex(data []byte) (bidders []types.Address, reveals uint64, err error) {
	defer recoverDecode("bidder index", &err)

	fb := types.GetRootAsBidderIndex(data, 0)

	flat := fb.BiddersBytes()
	if len(flat)%types.AddressSize != 0 {
		return nil, 0, fmt.Errorf("bidder index length %d not a multiple of %d", len(flat), types.AddressSize)
	}

	bidders = make([]types.Address, len(flat)/types.AddressSize)
	for i := range bidders {
		copy(bidders[i][:], flat[i*types.AddressSize:])
	}

	return bidders, fb.Reveals(), nil
}

// recoverDecode turns a flatbuffers out-of-range panic on corrupt input into
// an error.
func recoverDecode(what string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("corrupt %s record: %v", what, r)
	}
}
