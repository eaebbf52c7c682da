package events

import (
	"math/big"

	"github.com/google/uuid"

	"Dauction/internal/types"
)

// Kind names an auction lifecycle event.
type Kind string

const (
	AuctionCreated   Kind = "AuctionCreated"
	BidCreated       Kind = "BidCreated"
	BidRevealed      Kind = "BidRevealed"
	AuctionSettled   Kind = "AuctionSettled"
	AuctionUnsettled Kind = "AuctionUnsettled"
)

// Event is a single emitted lifecycle event. Which fields are set depends on
// Kind; unset identities and hashes are zero.
type Event struct {
	Seq uint64    `cbor:"1,keyasint" json:"seq"`
	ID  uuid.UUID `cbor:"2,keyasint" json:"id"`

	Kind     Kind          `cbor:"3,keyasint" json:"kind"`
	Contract types.Address `cbor:"4,keyasint" json:"assetContract"`
	AssetID  *big.Int      `cbor:"5,keyasint" json:"assetId"`

	Owner  types.Address `cbor:"6,keyasint" json:"owner"`
	Bidder types.Address `cbor:"7,keyasint" json:"bidder"`
	Winner types.Address `cbor:"8,keyasint" json:"winner"`

	Commitment types.Hash `cbor:"9,keyasint" json:"commitment"`
	Unveil     types.Hash `cbor:"10,keyasint" json:"unveilHash"`
	Salt       types.Hash `cbor:"11,keyasint" json:"salt"`

	Amount      *big.Int `cbor:"12,keyasint,omitempty" json:"amount,omitempty"`
	MinBidPrice *big.Int `cbor:"13,keyasint,omitempty" json:"minBidPrice,omitempty"`

	StartTime      uint64 `cbor:"14,keyasint,omitempty" json:"startTime,omitempty"`
	EndTime        uint64 `cbor:"15,keyasint,omitempty" json:"endTime,omitempty"`
	RevealDeadline uint64 `cbor:"16,keyasint,omitempty" json:"revealDeadline,omitempty"`

	// At is the emission time: createdAt for creation and bids, settledAt
	// for settlement.
	At uint64 `cbor:"17,keyasint" json:"at"`
}
