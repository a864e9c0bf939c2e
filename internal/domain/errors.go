package domain

import "fmt"

// Invariant names for InvariantViolation errors.
const (
	InvariantAmnestyOnSeller     = "amnesty_never_overrides_sale"
	InvariantPoolNotExceeded     = "allocations_within_pool"
	InvariantUniqueAllocation    = "one_allocation_per_address_per_round"
	InvariantSellerNeverEligible = "sold_token_never_eligible"
)

// InvariantViolation is a fatal breach of a ledger invariant. It is never
// silently corrected; the operation that detected it fails with the invariant named.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invariant violation: %s", e.Invariant)
	}
	return fmt.Sprintf("invariant violation: %s: %s", e.Invariant, e.Detail)
}

// Violation constructs an InvariantViolation with a formatted detail.
func Violation(invariant, format string, args ...interface{}) error {
	return &InvariantViolation{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}
