package domain

import "time"

// RiskLevel grades a duplicate flag.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// riskRank orders risk levels for max() comparisons.
var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

// FlagDecision is the operator's resolution of a duplicate flag.
type FlagDecision string

const (
	DecisionPending FlagDecision = "PENDING"
	DecisionInclude FlagDecision = "INCLUDE"
	DecisionExclude FlagDecision = "EXCLUDE"
)

// Duplicate flag reason codes. A flag can carry several.
const (
	ReasonRepeatRecipient  = "repeat_recipient"
	ReasonLinkedAddress    = "linked_address_duplicate"
	ReasonAmountAnomaly    = "amount_anomaly"
)

// PriorPaymentRef points at a prior PAID allocation that triggered a rule.
type PriorPaymentRef struct {
	RoundID string
	Address Address
	Amount  Amount
}

// DuplicateFlag marks an address in a draft round as a possible repeat or
// suspicious recipient. A round cannot finalize while any of its flags is
// PENDING, unless an explicit bulk directive resolves them.
type DuplicateFlag struct {
	Address       Address
	RoundID       string
	Risk          RiskLevel
	Reasons       []string
	PriorPayments []PriorPaymentRef
	Decision      FlagDecision
	DecidedBy     string // operator identity; bulk directives are attributed too
	DecidedAt     time.Time
}
