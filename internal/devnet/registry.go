package devnet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"Dauction/internal/auction"
	"Dauction/internal/types"
)

// ErrUnknownContract is returned for an address with no deployed contract.
var ErrUnknownContract = errors.New("unknown contract")

// Hook runs before every collaborator call. A non-nil error fails the call.
// op is the method name, e.g. "TransferFrom".
type Hook func(ctx context.Context, contract types.Address, op string) error

// Registry resolves addresses to devnet collections and tokens. It
// implements auction.Assets and auction.Tokens.
type Registry struct {
	mu          sync.RWMutex
	collections map[types.Address]*Collection
	tokens      map[types.Address]*Token
	hook        Hook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		collections: make(map[types.Address]*Collection),
		tokens:      make(map[types.Address]*Token),
	}
}

// AddCollection deploys a collection at addr, replacing any previous one.
func (r *Registry) AddCollection(addr types.Address) *Collection {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := NewCollection(addr)
	r.collections[addr] = c

	return c
}

// AddToken deploys a token at addr, replacing any previous one.
func (r *Registry) AddToken(addr types.Address, decimals uint8) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := NewToken(addr, decimals)
	r.tokens[addr] = t

	return t
}

// Collection returns the collection at addr.
func (r *Registry) Collection(addr types.Address) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[addr]
	return c, ok
}

// Token returns the token at addr.
func (r *Registry) Token(addr types.Address) (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[addr]
	return t, ok
}

// Collections returns the deployed collection addresses in sorted order.
func (r *Registry) Collections() []types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Address, 0, len(r.collections))
	for addr := range r.collections {
		out = append(out, addr)
	}
	sortAddresses(out)

	return out
}

// SetHook installs h in front of every collaborator call. nil removes it.
func (r *Registry) SetHook(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hook = h
}

// AssetContract implements auction.Assets.
func (r *Registry) AssetContract(addr types.Address) (auction.AssetContract, error) {
	c, ok := r.Collection(addr)
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", ErrUnknownContract, addr)
	}

	return &hookedCollection{c: c, r: r}, nil
}

// TokenContract implements auction.Tokens.
func (r *Registry) TokenContract(addr types.Address) (auction.TokenContract, error) {
	t, ok := r.Token(addr)
	if !ok {
		return nil, fmt.Errorf("%w: token %s", ErrUnknownContract, addr)
	}

	return &hookedToken{t: t, r: r}, nil
}

func (r *Registry) before(ctx context.Context, contract types.Address, op string) error {
	r.mu.RLock()
	h := r.hook
	r.mu.RUnlock()

	if h == nil {
		return nil
	}

	return h(ctx, contract, op)
}

type hookedCollection struct {
	c *Collection
	r *Registry
}

func (h *hookedCollection) OwnerOf(ctx context.Context, id *big.Int) (types.Address, error) {
	if err := h.r.before(ctx, h.c.addr, "OwnerOf"); err != nil {
		return types.Address{}, err
	}

	return h.c.OwnerOf(ctx, id)
}

func (h *hookedCollection) TransferFrom(ctx context.Context, operator, from, to types.Address, id *big.Int) error {
	if err := h.r.before(ctx, h.c.addr, "TransferFrom"); err != nil {
		return err
	}

	return h.c.TransferFrom(ctx, operator, from, to, id)
}

type hookedToken struct {
	t *Token
	r *Registry
}

func (h *hookedToken) BalanceOf(ctx context.Context, holder types.Address) (*big.Int, error) {
	if err := h.r.before(ctx, h.t.addr, "BalanceOf"); err != nil {
		return nil, err
	}

	return h.t.BalanceOf(ctx, holder)
}

func (h *hookedToken) Allowance(ctx context.Context, owner, spender types.Address) (*big.Int, error) {
	if err := h.r.before(ctx, h.t.addr, "Allowance"); err != nil {
		return nil, err
	}

	return h.t.Allowance(ctx, owner, spender)
}

func (h *hookedToken) TransferFrom(ctx context.Context, spender, from, to types.Address, amount *big.Int) error {
	if err := h.r.before(ctx, h.t.addr, "TransferFrom"); err != nil {
		return err
	}

	return h.t.TransferFrom(ctx, spender, from, to, amount)
}

func (h *hookedToken) Transfer(ctx context.Context, from, to types.Address, amount *big.Int) error {
	if err := h.r.before(ctx, h.t.addr, "Transfer"); err != nil {
		return err
	}

	return h.t.Transfer(ctx, from, to, amount)
}

func sortAddresses(addrs []types.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})
}
