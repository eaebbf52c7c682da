package auction

import (
	"context"
	"math/big"
	"time"

	"Dauction/internal/events"
	"Dauction/internal/storage"
	"Dauction/internal/types"
)

// AssetContract is a non-fungible asset collection.
// TransferFrom fails unless operator owns id or is approved for it.
type AssetContract interface {
	OwnerOf(ctx context.Context, id *big.Int) (types.Address, error)
	TransferFrom(ctx context.Context, operator, from, to types.Address, id *big.Int) error
}

// TokenContract is a fungible token.
// TransferFrom fails on insufficient balance or allowance of spender; Transfer
// moves the holder's own balance.
type TokenContract interface {
	BalanceOf(ctx context.Context, holder types.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender types.Address) (*big.Int, error)
	TransferFrom(ctx context.Context, spender, from, to types.Address, amount *big.Int) error
	Transfer(ctx context.Context, from, to types.Address, amount *big.Int) error
}

// Assets resolves asset contract identities.
type Assets interface {
	AssetContract(addr types.Address) (AssetContract, error)
}

// Tokens resolves token contract identities.
type Tokens interface {
	TokenContract(addr types.Address) (TokenContract, error)
}

// EventSink stages events into an operation's batch and publishes them once
// the operation is final. *events.Log implements it.
type EventSink interface {
	Stage(b *storage.Batch, evs []events.Event) ([]events.Event, error)
	Unstage(b *storage.Batch, evs []events.Event)
	Commit(evs []events.Event)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
