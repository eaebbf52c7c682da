package commitment

import (
	"errors"
	"math/big"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"Dauction/internal/types"
)

var (
	bidder = types.MustAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	other  = types.MustAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	weth   = types.MustAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	wbtc   = types.MustAddress("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func salt(b byte) types.Hash {
	var s types.Hash
	s[0] = b
	s[31] = b
	return s
}

func TestCommitKnownVector(t *testing.T) {
	// keccak256 of 64 zero bytes.
	want, err := types.ParseHash("0xad3228b676f7d3cd4284a5443f17f1962b36e491b30a40b2405849e597ba5fb5")
	assert.NoError(t, err)

	check.Equal(t, want, Commit(big.NewInt(0), types.Hash{}))
}

func TestCommitIsDeterministicAndSaltBound(t *testing.T) {
	a := Commit(ether(1), salt(1))
	b := Commit(ether(1), salt(1))
	c := Commit(ether(1), salt(2))
	d := Commit(ether(2), salt(1))

	check.Equal(t, a, b)
	check.NotEqual(t, a, c)
	check.NotEqual(t, a, d)
}

func TestVerifyRoundTrip(t *testing.T) {
	amount := ether(5)
	s := salt(7)

	stored := Unveil(bidder, Commit(amount, s), weth)

	check.Nil(t, Verify(bidder, stored, weth, amount, s))
}

func TestVerifyRejectsSingleBitChanges(t *testing.T) {
	amount := ether(5)
	s := salt(7)
	stored := Unveil(bidder, Commit(amount, s), weth)

	flippedAmount := new(big.Int).Xor(amount, big.NewInt(1))

	flippedSalt := s
	flippedSalt[12] ^= 0x01

	flippedBidder := bidder
	flippedBidder[0] ^= 0x80

	flippedToken := weth
	flippedToken[19] ^= 0x01

	cases := []struct {
		name   string
		bidder types.Address
		token  types.Address
		amount *big.Int
		salt   types.Hash
	}{
		{"amount", bidder, weth, flippedAmount, s},
		{"salt", bidder, weth, amount, flippedSalt},
		{"bidder", flippedBidder, weth, amount, s},
		{"token", bidder, flippedToken, amount, s},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(tc.bidder, stored, tc.token, tc.amount, tc.salt)
			check.True(t, errors.Is(err, ErrInvalidBidHash))
		})
	}
}

func TestSameCommitmentDistinctUnveils(t *testing.T) {
	c := Commit(ether(3), salt(9))

	u1 := Unveil(bidder, c, weth)
	u2 := Unveil(other, c, weth)
	u3 := Unveil(bidder, c, wbtc)

	check.NotEqual(t, u1, u2)
	check.NotEqual(t, u1, u3)
	check.NotEqual(t, u2, u3)

	check.Nil(t, Verify(bidder, u1, weth, ether(3), salt(9)))
	check.Nil(t, Verify(other, u2, weth, ether(3), salt(9)))
	check.True(t, errors.Is(Verify(other, u1, weth, ether(3), salt(9)), ErrInvalidBidHash))
}

func TestCheckZero(t *testing.T) {
	check.True(t, errors.Is(Check(types.Hash{}), ErrZeroCommitment))
	check.Nil(t, Check(salt(1)))
}

func TestVerifyRejectsNegativeAmount(t *testing.T) {
	stored := Unveil(bidder, Commit(ether(1), salt(1)), weth)

	err := Verify(bidder, stored, weth, big.NewInt(-1), salt(1))
	check.True(t, errors.Is(err, ErrInvalidBidHash))
}
