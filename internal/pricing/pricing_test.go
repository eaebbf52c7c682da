package pricing

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"Dauction/internal/types"
)

var (
	wethFeed = types.MustAddress("0x0000000000000000000000000000000000000f01")
	wbtcFeed = types.MustAddress("0x0000000000000000000000000000000000000f02")
	deadFeed = types.MustAddress("0x0000000000000000000000000000000000000f03")
)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func units(n int64, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), pow10(decimals))
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newTestNormalizer(maxAge time.Duration) (*Normalizer, *StaticOracle, *fixedClock) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	oracle := NewStaticOracle(clock.now)

	// WETH at 1000 USD with 8 feed decimals, WBTC at 30000 USD.
	oracle.Set(wethFeed, units(1000, 8), 8)
	oracle.Set(wbtcFeed, units(30000, 8), 8)

	return NewNormalizer(oracle, maxAge, clock.now), oracle, clock
}

func TestBasePriceScalesByFeed(t *testing.T) {
	n, _, _ := newTestNormalizer(0)
	ctx := context.Background()

	got, err := n.BasePrice(ctx, wethFeed, units(1, 18))
	assert.NoError(t, err)
	check.Equal(t, units(1000, 18).String(), got.String())

	got, err = n.BasePrice(ctx, wbtcFeed, units(5, 17)) // 0.5 WBTC
	assert.NoError(t, err)
	check.Equal(t, units(15000, 18).String(), got.String())
}

func TestBasePriceReferencePassThrough(t *testing.T) {
	n, _, _ := newTestNormalizer(0)

	got, err := n.BasePrice(context.Background(), types.Address{}, units(1234, 18))
	assert.NoError(t, err)
	check.Equal(t, units(1234, 18).String(), got.String())
}

func TestBasePriceTruncatesTowardZero(t *testing.T) {
	n, oracle, _ := newTestNormalizer(0)
	oracle.Set(wethFeed, big.NewInt(3), 1) // 0.3

	got, err := n.BasePrice(context.Background(), wethFeed, big.NewInt(5))
	assert.NoError(t, err)
	check.Equal(t, "1", got.String())
}

func TestBasePriceDoesNotOverflow(t *testing.T) {
	n, oracle, _ := newTestNormalizer(0)
	oracle.Set(wethFeed, pow10(30), 0)

	amount := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	got, err := n.BasePrice(context.Background(), wethFeed, amount)
	assert.NoError(t, err)
	check.Equal(t, new(big.Int).Mul(amount, pow10(30)).String(), got.String())
}

func TestNormalizeTokenDecimals(t *testing.T) {
	n, _, _ := newTestNormalizer(0)
	ctx := context.Background()

	// 2 WBTC with 8 native decimals.
	got, err := n.Normalize(ctx, wbtcFeed, 8, units(2, 8))
	assert.NoError(t, err)
	check.Equal(t, units(60000, 18).String(), got.String())

	// 10 reference units with 6 native decimals.
	got, err = n.Normalize(ctx, types.Address{}, 6, units(10, 6))
	assert.NoError(t, err)
	check.Equal(t, units(10, 18).String(), got.String())
}

func TestLatestPriceErrors(t *testing.T) {
	n, oracle, clock := newTestNormalizer(time.Hour)
	ctx := context.Background()

	oracle.Set(deadFeed, big.NewInt(0), 8)

	cases := []struct {
		name string
		feed types.Address
	}{
		{"unset feed", types.Address{}},
		{"unknown feed", types.MustAddress("0x0000000000000000000000000000000000000fff")},
		{"zero answer", deadFeed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := n.LatestPrice(ctx, tc.feed)
			check.True(t, errors.Is(err, ErrOracle))
		})
	}

	t.Run("stale answer", func(t *testing.T) {
		clock.t = clock.t.Add(2 * time.Hour)

		_, _, err := n.LatestPrice(ctx, wethFeed)
		check.True(t, errors.Is(err, ErrOracle))

		_, err = n.BasePrice(ctx, wethFeed, units(1, 18))
		check.True(t, errors.Is(err, ErrOracle))
	})
}

func TestLatestPriceReturnsCopy(t *testing.T) {
	n, _, _ := newTestNormalizer(0)

	price, decimals, err := n.LatestPrice(context.Background(), wethFeed)
	assert.NoError(t, err)
	check.Equal(t, uint8(8), decimals)

	price.SetInt64(1)

	again, _, err := n.LatestPrice(context.Background(), wethFeed)
	assert.NoError(t, err)
	check.Equal(t, units(1000, 8).String(), again.String())
}

func TestBasePriceRejectsNegative(t *testing.T) {
	n, _, _ := newTestNormalizer(0)

	_, err := n.BasePrice(context.Background(), wethFeed, big.NewInt(-1))
	check.Error(t, err)
}
