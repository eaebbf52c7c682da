package pricing

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"Dauction/internal/types"
)

// StaticOracle serves answers set in-process. It backs the devnet and tests.
type StaticOracle struct {
	mu      sync.RWMutex
	now     func() time.Time
	answers map[types.Address]Answer
}

// NewStaticOracle creates an empty oracle. now defaults to time.Now.
func NewStaticOracle(now func() time.Time) *StaticOracle {
	if now == nil {
		now = time.Now
	}

	return &StaticOracle{now: now, answers: make(map[types.Address]Answer)}
}

// Set records a new answer for feed, stamped with the current time.
func (o *StaticOracle) Set(feed types.Address, price *big.Int, decimals uint8) {
	o.SetAt(feed, price, decimals, o.now())
}

// SetAt records an answer with an explicit update time.
func (o *StaticOracle) SetAt(feed types.Address, price *big.Int, decimals uint8, updatedAt time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.answers[feed] = Answer{
		Price:     new(big.Int).Set(price),
		Decimals:  decimals,
		UpdatedAt: updatedAt,
	}
}

// LatestAnswer implements Oracle.
func (o *StaticOracle) LatestAnswer(_ context.Context, feed types.Address) (Answer, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ans, ok := o.answers[feed]
	if !ok {
		return Answer{}, fmt.Errorf("no answer for feed %s", feed)
	}

	ans.Price = new(big.Int).Set(ans.Price)

	return ans, nil
}
