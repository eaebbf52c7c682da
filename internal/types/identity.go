package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	// AddressSize is the size of an account or contract identity.
	AddressSize = 20

	// HashSize is the size of a digest.
	HashSize = 32
)

// maxUint256 bounds every on-ledger amount.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Address identifies an account, an asset contract, a token or a price feed.
type Address [AddressSize]byte

// Hash is a 32-byte digest. The zero hash is the degenerate sentinel.
type Hash [HashSize]byte

// ParseAddress decodes a 0x-prefixed (or bare) 40 hex digit identity.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw, err := decodeHex(s, AddressSize)
	if err != nil {
		return a, fmt.Errorf("parse address %q:\n%w", s, err)
	}

	copy(a[:], raw)

	return a, nil
}

// MustAddress parses s and panics on error. Intended for tests and constants.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}

	return a
}

// AddressFromBytes copies b into an Address. b must be exactly 20 bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("invalid address length: %d", len(b))
	}

	copy(a[:], b)

	return a, nil
}

// IsZero reports whether a is the empty identity.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// ParseHash decodes a 0x-prefixed (or bare) 64 hex digit digest.
func ParseHash(s string) (Hash, error) {
	var h Hash

	raw, err := decodeHex(s, HashSize)
	if err != nil {
		return h, fmt.Errorf("parse hash %q:\n%w", s, err)
	}

	copy(h[:], raw)

	return h, nil
}

// HashFromBytes copies b into a Hash. b must be exactly 32 bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length: %d", len(b))
	}

	copy(h[:], b)

	return h, nil
}

// IsZero reports whether h is the all-zero sentinel.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the 0x-prefixed lowercase hex form.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// decodeHex strips an optional 0x prefix and decodes exactly size bytes.
func decodeHex(s string, size int) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != size*2 {
		return nil, fmt.Errorf("want %d hex digits, got %d", size*2, len(s))
	}

	return hex.DecodeString(s)
}

// ParseAmount parses a non-negative uint256 given in decimal or 0x hex.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	if err := CheckUint256(v); err != nil {
		return nil, err
	}

	return v, nil
}

// CheckUint256 returns an error if v is nil, negative or wider than 256 bits.
func CheckUint256(v *big.Int) error {
	if v == nil {
		return fmt.Errorf("missing amount")
	}

	if v.Sign() < 0 {
		return fmt.Errorf("negative amount %s", v)
	}

	if v.Cmp(maxUint256) > 0 {
		return fmt.Errorf("amount %s exceeds uint256", v)
	}

	return nil
}

// Word encodes v as a 32-byte big-endian word. v must satisfy CheckUint256.
func Word(v *big.Int) [32]byte {
	var w [32]byte
	if v != nil {
		v.FillBytes(w[:])
	}

	return w
}

// AmountBytes returns the minimal big-endian encoding of v (empty for zero).
func AmountBytes(v *big.Int) []byte {
	if v == nil {
		return nil
	}

	return v.Bytes()
}

// AmountFromBytes decodes a big-endian amount; empty input yields zero.
func AmountFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
