package reporting

import (
	"time"

	"staking-reward-ledger/internal/domain"
)

// RoundReport is the full post-round report structure.
type RoundReport struct {
	// Metadata
	GeneratedAt time.Time
	RoundID     string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      domain.RoundStatus

	// Category breakdown of the classified set
	Categories CategorySection

	// Pool accounting
	Pool PoolSection

	// Allocations (sorted by address)
	Allocations []AllocationRow

	// Duplicate flags and their resolutions
	Flags []FlagRow

	// Amnesty grants issued for the round
	Amnesties []AmnestyRow

	// Lifecycle audit trail
	AuditTrail []AuditRow
}

// CategorySection counts participants per category and derives rates.
type CategorySection struct {
	Total          int
	Perfect        int
	MissedPurchase int
	SoldToken      int
	Transferred    int

	// EligibleRate is eligible / total; zero when the set is empty.
	EligibleCount int
	EligibleRate  float64

	// AmnestyCandidates counts addresses whose category allows amnesty.
	AmnestyCandidates int

	// Blocked counts permanently banned addresses (SOLD_TOKEN).
	Blocked int
}

// PoolSection reconciles the pool against the committed amounts.
type PoolSection struct {
	TotalPool   domain.Amount
	Distributed domain.Amount // sum of APPROVED + PAID amounts
	Excluded    domain.Amount // sum withheld by operator exclusions
}

// AllocationRow is one payout line.
type AllocationRow struct {
	Address    domain.Address
	Amount     domain.Amount
	Status     domain.AllocationStatus
	PaymentRef string // deterministic hash for cross-referencing payouts
}

// FlagRow is one duplicate flag with its resolution.
type FlagRow struct {
	Address   domain.Address
	Risk      domain.RiskLevel
	Reasons   []string
	Decision  domain.FlagDecision
	DecidedBy string
}

// AmnestyRow is one operator override.
type AmnestyRow struct {
	Address  domain.Address
	Operator string
	Reason   string
}

// AuditRow is one lifecycle event.
type AuditRow struct {
	At     time.Time
	Kind   string
	Actor  string
	Detail string
}
