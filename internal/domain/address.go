package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte on-chain account identifier.
type Address = common.Address

// ParseAddress parses a 0x-prefixed hex address.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("parse address %q: not a valid hex address", s)
	}
	return common.HexToAddress(s), nil
}

// AddressLess orders addresses by raw byte comparison.
// Used wherever deterministic address ordering is required.
func AddressLess(a, b Address) bool {
	return a.Cmp(b) < 0
}
