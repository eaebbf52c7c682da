package devnet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"Dauction/internal/types"
)

var (
	alice  = types.MustAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	bob    = types.MustAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	escrow = types.MustAddress("0x90f79bf6eb2c4f870365e785982e1f101e93b906")
	nft    = types.MustAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	usdc   = types.MustAddress("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512")
)

func TestTokenTransferFromSpendsAllowance(t *testing.T) {
	ctx := context.Background()
	tok := NewToken(usdc, 6)

	assert.NoError(t, tok.Mint(alice, big.NewInt(100)))
	assert.NoError(t, tok.Approve(alice, escrow, big.NewInt(60)))

	assert.NoError(t, tok.TransferFrom(ctx, escrow, alice, bob, big.NewInt(40)))

	bal, _ := tok.BalanceOf(ctx, alice)
	check.Equal(t, int64(60), bal.Int64())

	bal, _ = tok.BalanceOf(ctx, bob)
	check.Equal(t, int64(40), bal.Int64())

	left, _ := tok.Allowance(ctx, alice, escrow)
	check.Equal(t, int64(20), left.Int64())

	err := tok.TransferFrom(ctx, escrow, alice, bob, big.NewInt(21))
	check.True(t, errors.Is(err, ErrInsufficientAllowance))
}

func TestTokenZeroTransferFromWithoutApprovals(t *testing.T) {
	ctx := context.Background()
	tok := NewToken(usdc, 6)

	assert.NoError(t, tok.TransferFrom(ctx, escrow, alice, bob, big.NewInt(0)))

	bal, _ := tok.BalanceOf(ctx, bob)
	check.Equal(t, 0, bal.Sign())

	left, _ := tok.Allowance(ctx, alice, escrow)
	check.Equal(t, 0, left.Sign())
}

func TestTokenTransferInsufficientBalanceLeavesState(t *testing.T) {
	ctx := context.Background()
	tok := NewToken(usdc, 6)

	assert.NoError(t, tok.Mint(alice, big.NewInt(10)))

	err := tok.Transfer(ctx, alice, bob, big.NewInt(11))
	check.True(t, errors.Is(err, ErrInsufficientBalance))

	bal, _ := tok.BalanceOf(ctx, alice)
	check.Equal(t, int64(10), bal.Int64())

	bal, _ = tok.BalanceOf(ctx, bob)
	check.Equal(t, 0, bal.Sign())
}

func TestTokenMintOverflow(t *testing.T) {
	tok := NewToken(usdc, 18)

	assert.NoError(t, tok.Mint(alice, maxUint256))

	err := tok.Mint(alice, big.NewInt(1))
	check.True(t, errors.Is(err, ErrOverflow))

	err = tok.Mint(alice, big.NewInt(-1))
	check.True(t, errors.Is(err, ErrNegativeAmount))
}

func TestCollectionTransferRequiresApproval(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(nft)
	id := big.NewInt(7)

	assert.NoError(t, c.Mint(alice, id))

	err := c.TransferFrom(ctx, escrow, alice, escrow, id)
	check.True(t, errors.Is(err, ErrNotApproved))

	assert.NoError(t, c.Approve(alice, escrow, id))
	assert.NoError(t, c.TransferFrom(ctx, escrow, alice, escrow, id))

	owner, err := c.OwnerOf(ctx, id)
	assert.NoError(t, err)
	check.Equal(t, escrow, owner)

	// The per-asset approval does not survive the transfer.
	err = c.TransferFrom(ctx, alice, escrow, alice, id)
	check.True(t, errors.Is(err, ErrNotApproved))
}

func TestCollectionOperatorApproval(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(nft)

	assert.NoError(t, c.Mint(alice, big.NewInt(1)))
	assert.NoError(t, c.Mint(alice, big.NewInt(2)))

	c.SetApprovalForAll(alice, escrow, true)

	assert.NoError(t, c.TransferFrom(ctx, escrow, alice, bob, big.NewInt(1)))
	assert.NoError(t, c.TransferFrom(ctx, escrow, alice, bob, big.NewInt(2)))

	err := c.TransferFrom(ctx, escrow, alice, bob, big.NewInt(1))
	check.True(t, errors.Is(err, ErrWrongFrom))

	err = c.Mint(bob, big.NewInt(1))
	check.True(t, errors.Is(err, ErrAlreadyMinted))

	_, err = c.OwnerOf(ctx, big.NewInt(3))
	check.True(t, errors.Is(err, ErrNonexistentToken))
}

func TestRegistryHookFailsCalls(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	r.AddToken(usdc, 6)

	boom := errors.New("boom")
	r.SetHook(func(_ context.Context, contract types.Address, op string) error {
		if contract == usdc && op == "Transfer" {
			return boom
		}
		return nil
	})

	tok, err := r.TokenContract(usdc)
	assert.NoError(t, err)

	_, err = tok.BalanceOf(ctx, alice)
	check.NoError(t, err)

	err = tok.Transfer(ctx, alice, bob, big.NewInt(0))
	check.True(t, errors.Is(err, boom))

	_, err = r.AssetContract(nft)
	check.True(t, errors.Is(err, ErrUnknownContract))
}
