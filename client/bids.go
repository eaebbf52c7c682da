package client

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"Dauction/internal/commitment"
	"Dauction/internal/types"
)

// SealedBid is everything a bidder must keep between bidding and revealing.
type SealedBid struct {
	Contract   types.Address
	AssetID    *big.Int
	Token      types.Address
	Amount     *big.Int
	Salt       types.Hash
	Commitment types.Hash
}

// Seal draws a random salt and commits to amount under it.
func Seal(contract types.Address, id *big.Int, token types.Address, amount *big.Int) (*SealedBid, error) {
	if err := types.CheckUint256(amount); err != nil {
		return nil, fmt.Errorf("seal bid:\n%w", err)
	}

	var salt types.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("draw salt:\n%w", err)
	}

	return &SealedBid{
		Contract:   contract,
		AssetID:    new(big.Int).Set(id),
		Token:      token,
		Amount:     new(big.Int).Set(amount),
		Salt:       salt,
		Commitment: commitment.Commit(amount, salt),
	}, nil
}

// Unveil returns the hash the node stores for this bid once bidder submits it.
func (sb *SealedBid) Unveil(bidder types.Address) types.Hash {
	return commitment.Unveil(bidder, sb.Commitment, sb.Token)
}
