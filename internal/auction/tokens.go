package auction

import (
	"fmt"

	"Dauction/internal/types"
)

// maxTokenDecimals bounds native token precision.
const maxTokenDecimals = 36

// AcceptedToken binds a bid token to its price feed.
// The reference token has a zero Feed and is valued 1:1.
type AcceptedToken struct {
	Token    types.Address `json:"token" yaml:"token"`
	Feed     types.Address `json:"priceFeed" yaml:"price_feed"`
	Decimals uint8         `json:"decimals" yaml:"decimals"`
}

// TokenRegistry is the immutable accepted bid token table, fixed at
// construction and handed to the Machine.
type TokenRegistry struct {
	byToken   map[types.Address]AcceptedToken
	order     []types.Address
	reference types.Address
}

// NewTokenRegistry validates and freezes the accepted token table.
// reference must appear in tokens with a zero feed; every other token needs
// a feed.
func NewTokenRegistry(reference types.Address, tokens []AcceptedToken) (*TokenRegistry, error) {
	if reference.IsZero() {
		return nil, fmt.Errorf("reference token not set")
	}

	r := &TokenRegistry{
		byToken:   make(map[types.Address]AcceptedToken, len(tokens)),
		reference: reference,
	}

	for _, t := range tokens {
		if t.Token.IsZero() {
			return nil, fmt.Errorf("accepted token with zero address")
		}

		if _, dup := r.byToken[t.Token]; dup {
			return nil, fmt.Errorf("duplicate accepted token %s", t.Token)
		}

		if t.Decimals > maxTokenDecimals {
			return nil, fmt.Errorf("token %s: %d decimals exceeds %d", t.Token, t.Decimals, maxTokenDecimals)
		}

		isReference := t.Token == reference
		if isReference && !t.Feed.IsZero() {
			return nil, fmt.Errorf("reference token %s must not have a price feed", t.Token)
		}

		if !isReference && t.Feed.IsZero() {
			return nil, fmt.Errorf("token %s has no price feed", t.Token)
		}

		r.byToken[t.Token] = t
		r.order = append(r.order, t.Token)
	}

	if _, ok := r.byToken[reference]; !ok {
		return nil, fmt.Errorf("reference token %s is not in the accepted list", reference)
	}

	return r, nil
}

// Lookup returns the accepted token entry.
func (r *TokenRegistry) Lookup(token types.Address) (AcceptedToken, bool) {
	t, ok := r.byToken[token]
	return t, ok
}

// Feed returns the token's price feed, zero for the reference token.
func (r *TokenRegistry) Feed(token types.Address) (types.Address, error) {
	t, ok := r.byToken[token]
	if !ok {
		return types.Address{}, ErrInvalidBidToken
	}

	return t.Feed, nil
}

// IsReference reports whether token is the 1:1 settlement token.
func (r *TokenRegistry) IsReference(token types.Address) bool {
	return token == r.reference
}

// Reference returns the settlement token.
func (r *TokenRegistry) Reference() types.Address {
	return r.reference
}

// All returns the accepted tokens in configuration order.
func (r *TokenRegistry) All() []AcceptedToken {
	out := make([]AcceptedToken, len(r.order))
	for i, tok := range r.order {
		out[i] = r.byToken[tok]
	}

	return out
}
