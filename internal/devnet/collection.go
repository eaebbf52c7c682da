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
	ErrNonexistentToken = errors.New("nonexistent token")
	ErrAlreadyMinted    = errors.New("token already minted")
	ErrNotApproved      = errors.New("caller is not owner nor approved")
	ErrWrongFrom        = errors.New("transfer from incorrect owner")
	ErrZeroRecipient    = errors.New("transfer to the zero address")
)

// Collection is a non-fungible asset collection with per-asset approvals
// and operator approvals.
type Collection struct {
	mu        sync.Mutex
	addr      types.Address
	owners    map[string]types.Address
	approved  map[string]types.Address
	operators map[types.Address]map[types.Address]bool
}

// NewCollection creates an empty collection.
func NewCollection(addr types.Address) *Collection {
	return &Collection{
		addr:      addr,
		owners:    make(map[string]types.Address),
		approved:  make(map[string]types.Address),
		operators: make(map[types.Address]map[types.Address]bool),
	}
}

// Address returns the collection's identity.
func (c *Collection) Address() types.Address { return c.addr }

// Mint creates asset id owned by to.
func (c *Collection) Mint(to types.Address, id *big.Int) error {
	if to.IsZero() {
		return ErrZeroRecipient
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.owners[id.String()]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyMinted, id)
	}

	c.owners[id.String()] = to

	return nil
}

// OwnerOf returns the holder of asset id.
func (c *Collection) OwnerOf(_ context.Context, id *big.Int) (types.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[id.String()]
	if !ok {
		return types.Address{}, fmt.Errorf("%w: %s", ErrNonexistentToken, id)
	}

	return owner, nil
}

// Approve lets spender move asset id. Only the holder or one of its
// operators may approve.
func (c *Collection) Approve(caller, spender types.Address, id *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[id.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNonexistentToken, id)
	}

	if caller != owner && !c.operators[owner][caller] {
		return ErrNotApproved
	}

	c.approved[id.String()] = spender

	return nil
}

// SetApprovalForAll grants or revokes operator over all of owner's assets.
func (c *Collection) SetApprovalForAll(owner, operator types.Address, approved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.operators[owner] == nil {
		c.operators[owner] = make(map[types.Address]bool)
	}
	c.operators[owner][operator] = approved
}

// TransferFrom moves asset id from from to to on behalf of operator. The
// per-asset approval is cleared.
func (c *Collection) TransferFrom(_ context.Context, operator, from, to types.Address, id *big.Int) error {
	if to.IsZero() {
		return ErrZeroRecipient
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := id.String()

	owner, ok := c.owners[k]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNonexistentToken, id)
	}

	if owner != from {
		return fmt.Errorf("%w: %s held by %s", ErrWrongFrom, id, owner)
	}

	if operator != owner && c.approved[k] != operator && !c.operators[owner][operator] {
		return fmt.Errorf("%w: %s on %s", ErrNotApproved, operator, id)
	}

	delete(c.approved, k)
	c.owners[k] = to

	return nil
}
