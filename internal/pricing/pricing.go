// Package pricing converts bid amounts in accepted tokens into a common
// USD-denominated fixed-point unit using price oracle answers.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"Dauction/internal/types"
)

// Decimals is the fixed-point width of normalized values and native amounts.
const Decimals = 18

// ErrOracle is returned when a feed is unset, unknown, non-positive or stale.
var ErrOracle = errors.New("oracle error")

// Answer is a price oracle's latest round.
type Answer struct {
	Price     *big.Int  // Price is the feed value scaled by 10^Decimals
	Decimals  uint8     // Decimals is the feed's fixed-point width
	UpdatedAt time.Time // UpdatedAt is when the round was last updated
}

// Oracle reads the latest answer of a price feed.
type Oracle interface {
	LatestAnswer(ctx context.Context, feed types.Address) (Answer, error)
}

// Normalizer wraps an Oracle with a freshness policy and fixed-point scaling.
type Normalizer struct {
	oracle Oracle
	maxAge time.Duration
	now    func() time.Time
}

// NewNormalizer creates a Normalizer. A zero maxAge disables the staleness
// check. now defaults to time.Now.
func NewNormalizer(oracle Oracle, maxAge time.Duration, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}

	return &Normalizer{oracle: oracle, maxAge: maxAge, now: now}
}

// LatestPrice returns the feed's positive, fresh price and its decimals.
func (n *Normalizer) LatestPrice(ctx context.Context, feed types.Address) (*big.Int, uint8, error) {
	if feed.IsZero() {
		return nil, 0, fmt.Errorf("%w: feed not set", ErrOracle)
	}

	ans, err := n.oracle.LatestAnswer(ctx, feed)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: feed %s:\n%w", ErrOracle, feed, err)
	}

	if ans.Price == nil || ans.Price.Sign() <= 0 {
		return nil, 0, fmt.Errorf("%w: non-positive answer from feed %s", ErrOracle, feed)
	}

	if n.maxAge > 0 {
		if ans.UpdatedAt.IsZero() || n.now().Sub(ans.UpdatedAt) > n.maxAge {
			return nil, 0, fmt.Errorf("%w: stale answer from feed %s (updated %s)", ErrOracle, feed, ans.UpdatedAt.UTC().Format(time.RFC3339))
		}
	}

	return new(big.Int).Set(ans.Price), ans.Decimals, nil
}

// BasePrice returns rawAmount * price / 10^decimals, truncated toward zero.
// The zero feed is the reference token's and passes rawAmount through.
func (n *Normalizer) BasePrice(ctx context.Context, feed types.Address, rawAmount *big.Int) (*big.Int, error) {
	return n.scale(ctx, feed, rawAmount, Decimals)
}

// Normalize converts rawAmount of a token with tokenDecimals native decimals
// into the 18-decimal USD unit through the token's feed.
func (n *Normalizer) Normalize(ctx context.Context, feed types.Address, tokenDecimals uint8, rawAmount *big.Int) (*big.Int, error) {
	return n.scale(ctx, feed, rawAmount, tokenDecimals)
}

// scale rescales rawAmount from tokenDecimals to Decimals and applies the
// feed price, with a single truncation at the end.
func (n *Normalizer) scale(ctx context.Context, feed types.Address, rawAmount *big.Int, tokenDecimals uint8) (*big.Int, error) {
	if err := types.CheckUint256(rawAmount); err != nil {
		return nil, fmt.Errorf("normalize amount:\n%w", err)
	}

	exp := int32(Decimals) - int32(tokenDecimals)
	value := decimal.NewFromBigInt(rawAmount, exp)

	if !feed.IsZero() {
		price, decimals, err := n.LatestPrice(ctx, feed)
		if err != nil {
			return nil, err
		}

		value = value.Mul(decimal.NewFromBigInt(price, -int32(decimals)))
	}

	return value.BigInt(), nil
}
