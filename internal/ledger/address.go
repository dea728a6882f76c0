package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLen is the byte length of a holder address.
const AddressLen = 20

// Address identifies a balance holder. The zero value is the origination
// sentinel: it can never hold a balance or receive a transfer, and a
// Movement from it signals newly minted value.
type Address [AddressLen]byte

// ZeroAddress is the origination sentinel.
var ZeroAddress Address

// ParseAddress decodes a 0x-prefixed (or bare) 40-hex-char address.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h) != AddressLen*2 {
		return a, fmt.Errorf("address %q: want %d hex chars, got %d", s, AddressLen*2, len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// AddressFromBytes builds an Address from the first AddressLen bytes of b.
func AddressFromBytes(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// IsZero reports whether a is the origination sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}
