// Package devnet provides in-process asset collections and fungible tokens so
// a node can run the full auction lifecycle without an external chain.
package devnet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"Dauction/internal/types"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrOverflow              = errors.New("balance overflow")
	ErrNegativeAmount        = errors.New("negative amount")
)

// maxUint256 bounds every balance and allowance.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Token is a fungible token with balances and allowances.
type Token struct {
	mu         sync.Mutex
	addr       types.Address
	decimals   uint8
	balances   map[types.Address]*big.Int
	allowances map[types.Address]map[types.Address]*big.Int
}

// NewToken creates an empty token.
func NewToken(addr types.Address, decimals uint8) *Token {
	return &Token{
		addr:       addr,
		decimals:   decimals,
		balances:   make(map[types.Address]*big.Int),
		allowances: make(map[types.Address]map[types.Address]*big.Int),
	}
}

// Address returns the token's identity.
func (t *Token) Address() types.Address { return t.addr }

// Decimals returns the token's fixed-point width.
func (t *Token) Decimals() uint8 { return t.decimals }

// Mint credits amount to holder.
func (t *Token) Mint(holder types.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.credit(holder, amount)
}

// BalanceOf returns holder's balance.
func (t *Token) BalanceOf(_ context.Context, holder types.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return new(big.Int).Set(t.balance(holder)), nil
}

// Allowance returns how much spender may move from owner.
func (t *Token) Allowance(_ context.Context, owner, spender types.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return new(big.Int).Set(t.allowance(owner, spender)), nil
}

// Approve sets spender's allowance over owner's balance.
func (t *Token) Approve(owner, spender types.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[types.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)

	return nil
}

// TransferFrom moves amount from from to to, spending spender's allowance.
func (t *Token) TransferFrom(_ context.Context, spender, from, to types.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.allowance(from, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s may move %s of %s, wants %s", ErrInsufficientAllowance, spender, allowed, from, amount)
	}

	if err := t.move(from, to, amount); err != nil {
		return err
	}

	if t.allowances[from] == nil {
		t.allowances[from] = make(map[types.Address]*big.Int)
	}
	t.allowances[from][spender] = new(big.Int).Sub(allowed, amount)

	return nil
}

// Transfer moves amount out of from's own balance.
func (t *Token) Transfer(_ context.Context, from, to types.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.move(from, to, amount)
}

// move debits then credits, leaving both balances untouched on failure.
func (t *Token) move(from, to types.Address, amount *big.Int) error {
	fromBal := t.balance(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from, fromBal, amount)
	}

	if from == to {
		return nil
	}

	toBal := new(big.Int).Add(t.balance(to), amount)
	if toBal.Cmp(maxUint256) > 0 {
		return fmt.Errorf("%w: crediting %s", ErrOverflow, to)
	}

	t.balances[from] = new(big.Int).Sub(fromBal, amount)
	t.balances[to] = toBal

	return nil
}

// credit adds amount to holder, rejecting results above uint256.
func (t *Token) credit(holder types.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	next := new(big.Int).Add(t.balance(holder), amount)
	if next.Cmp(maxUint256) > 0 {
		return fmt.Errorf("%w: crediting %s", ErrOverflow, holder)
	}

	t.balances[holder] = next

	return nil
}

func (t *Token) balance(holder types.Address) *big.Int {
	if b, ok := t.balances[holder]; ok {
		return b
	}

	return new(big.Int)
}

func (t *Token) allowance(owner, spender types.Address) *big.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return a
	}

	return new(big.Int)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}

	if amount.Cmp(maxUint256) > 0 {
		return ErrOverflow
	}

	return nil
}
