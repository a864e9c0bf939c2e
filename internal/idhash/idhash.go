// Package idhash computes deterministic reference ids for audit cross-checks.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"staking-reward-ledger/internal/domain"
)

// PaymentRef computes a deterministic reference for one allocation.
// Formula: SHA256(round_id|address|amount_base_units)
// Returns hex-encoded hash (64 characters). The same allocation always maps
// to the same reference, so ledgers exported at different times line up.
func PaymentRef(roundID string, addr domain.Address, amount domain.Amount) string {
	data := fmt.Sprintf("%s|%s|%s", roundID, addr.Hex(), amount.BaseUnits().String())
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// FlagRef computes a deterministic reference for one duplicate flag.
// Formula: SHA256(round_id|address|flag)
func FlagRef(roundID string, addr domain.Address) string {
	data := fmt.Sprintf("%s|%s|flag", roundID, addr.Hex())
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
