// Package commitment implements the two-stage commit/reveal hashing used by
// sealed bids.
//
// A bidder publishes Commit(amount, salt) while bidding. The ledger stores
// Unveil(bidder, commitment, token) so the same commitment cannot be replayed
// by another bidder or reinterpreted for another token. At reveal time the
// bidder supplies amount and salt and Verify recomputes both stages.
package commitment

import (
	"errors"
	"math/big"

	"golang.org/x/crypto/sha3"

	"Dauction/internal/types"
)

var (
	// ErrZeroCommitment is returned for the all-zero sentinel hash.
	ErrZeroCommitment = errors.New("zero bid commitment")

	// ErrInvalidBidHash is returned when a reveal does not reproduce the
	// stored unveil hash.
	ErrInvalidBidHash = errors.New("invalid bid hash")
)

// keccak256 hashes the concatenation of parts with legacy Keccak-256.
func keccak256(parts ...[]byte) types.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}

	var out types.Hash
	h.Sum(out[:0])

	return out
}

// Commit returns keccak256(word(bidAmount) || salt).
// bidAmount must be a valid uint256.
func Commit(bidAmount *big.Int, salt types.Hash) types.Hash {
	word := types.Word(bidAmount)
	return keccak256(word[:], salt[:])
}

// Unveil returns keccak256(bidder || commitment || token) in packed encoding.
func Unveil(bidder types.Address, commitment types.Hash, token types.Address) types.Hash {
	return keccak256(bidder[:], commitment[:], token[:])
}

// Check rejects the zero sentinel.
func Check(commitment types.Hash) error {
	if commitment.IsZero() {
		return ErrZeroCommitment
	}

	return nil
}

// Verify recomputes the commitment from bidAmount and salt, binds it to bidder
// and token, and compares the result with the stored unveil hash.
func Verify(bidder types.Address, stored types.Hash, token types.Address, bidAmount *big.Int, salt types.Hash) error {
	if err := types.CheckUint256(bidAmount); err != nil {
		return ErrInvalidBidHash
	}

	c := Commit(bidAmount, salt)
	if err := Check(c); err != nil {
		return err
	}

	u := Unveil(bidder, c, token)
	if u.IsZero() || u != stored {
		return ErrInvalidBidHash
	}

	return nil
}
