package domain

import "math/big"

// AllocationStatus is the payment state of one allocation row.
type AllocationStatus string

const (
	AllocationPending  AllocationStatus = "PENDING"
	AllocationApproved AllocationStatus = "APPROVED"
	AllocationExcluded AllocationStatus = "EXCLUDED"
	AllocationPaid     AllocationStatus = "PAID"
)

// RewardAllocation is one address's payout within one round.
// At most one row may exist per (address, round) — enforced at the storage boundary.
type RewardAllocation struct {
	Address           Address
	RoundID           string
	RawScore          *big.Rat // caller-supplied weight
	AppliedMultiplier *big.Rat // multiplier of the effective category
	Amount            Amount   // normalized payout, truncated to base units
	Status            AllocationStatus
}
