package domain

import (
	"math/big"
	"time"
)

// RoundStatus is the lifecycle state of a distribution round.
type RoundStatus string

const (
	RoundDraft             RoundStatus = "DRAFT"
	RoundPendingDuplicates RoundStatus = "PENDING_DUPLICATES"
	RoundFinalized         RoundStatus = "FINALIZED"
	RoundAborted           RoundStatus = "ABORTED"
)

// CategoryMultipliers maps an effective category to its reward multiplier.
type CategoryMultipliers map[Category]*big.Rat

// Multiplier returns the multiplier for c, or 0 if the category is absent.
func (m CategoryMultipliers) Multiplier(c Category) *big.Rat {
	if r, ok := m[c]; ok && r != nil {
		return new(big.Rat).Set(r)
	}
	return new(big.Rat)
}

// DistributionRound is one atomic distribution cycle over a fixed pool and period.
type DistributionRound struct {
	ID          string // uuid; a new DRAFT always gets a fresh id, ABORTED ids are never reused
	PeriodStart time.Time
	PeriodEnd   time.Time // exclusive
	TotalPool   Amount
	Multipliers CategoryMultipliers
	Status      RoundStatus
	CreatedAt   time.Time
	FinalizedAt time.Time // zero until FINALIZED

	// Supersedes references the round this one corrects, if any.
	// FINALIZED rounds are immutable; corrections always go through a new round.
	Supersedes string
}
