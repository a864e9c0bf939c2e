// Package eligibility decides, per address and round, whether a classified
// participant receives a payout and which category its multiplier comes from.
// The engine performs no I/O: it is a decision table over already-classified
// data, with every anti-abuse rule expressed in one place.
package eligibility

import (
	"fmt"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

// Decision is the outcome for one participant.
type Decision struct {
	Eligible bool

	// EffectiveCategory drives the multiplier lookup. It can differ from the
	// classified category when an amnesty lifts a participant.
	EffectiveCategory domain.Category

	AmnestyApplied bool
}

// Engine applies the eligibility rules.
type Engine struct {
	// amnestyLiftsToPerfect controls whether an amnestied participant is paid
	// at the PERFECT multiplier (the production default) or keeps its own
	// category's multiplier.
	amnestyLiftsToPerfect bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithAmnestyKeepingCategory makes amnestied participants keep their
// classified category for multiplier purposes instead of being lifted to PERFECT.
func WithAmnestyKeepingCategory() Option {
	return func(e *Engine) { e.amnestyLiftsToPerfect = false }
}

// NewEngine creates an Engine with production defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{amnestyLiftsToPerfect: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates one participant. amnestied reports whether a valid grant
// exists for this exact (address, round).
//
// The whole rule set lives in this one switch:
//
//	SOLD_TOKEN       -> never eligible; an amnesty attempt is an invariant violation
//	PERFECT          -> eligible
//	MISSED_PURCHASE  -> eligible only via amnesty
//	TRANSFERRED      -> eligible at a reduced multiplier; amnesty lifts it
func (e *Engine) Decide(category domain.Category, amnestied bool) (Decision, error) {
	switch category {
	case domain.CategorySoldToken:
		if amnestied {
			return Decision{}, domain.Violation(domain.InvariantAmnestyOnSeller,
				"amnesty grant attached to a SOLD_TOKEN address")
		}
		return Decision{Eligible: false, EffectiveCategory: domain.CategorySoldToken}, nil

	case domain.CategoryPerfect:
		// A grant on a PERFECT address has nothing to lift; it is inert.
		return Decision{Eligible: true, EffectiveCategory: domain.CategoryPerfect}, nil

	case domain.CategoryMissedPurchase:
		if !amnestied {
			return Decision{Eligible: false, EffectiveCategory: domain.CategoryMissedPurchase}, nil
		}
		return Decision{
			Eligible:          true,
			EffectiveCategory: e.lifted(domain.CategoryMissedPurchase),
			AmnestyApplied:    true,
		}, nil

	case domain.CategoryTransferred:
		d := Decision{Eligible: true, EffectiveCategory: domain.CategoryTransferred}
		if amnestied {
			d.EffectiveCategory = e.lifted(domain.CategoryTransferred)
			d.AmnestyApplied = true
		}
		return d, nil

	default:
		return Decision{}, fmt.Errorf("decide: unknown category %q: %w", category, storage.ErrInvalidInput)
	}
}

func (e *Engine) lifted(classified domain.Category) domain.Category {
	if e.amnestyLiftsToPerfect {
		return domain.CategoryPerfect
	}
	return classified
}

// Result pairs a participant with its decision.
type Result struct {
	Address domain.Address
	Decision
}

// ComputeEligibility evaluates a classified batch against the round's amnesty
// grants. Grants for other rounds are ignored; a grant on a SOLD_TOKEN address
// fails the whole operation (invariant, not a warning). Each participant's
// Eligible flag is updated in place.
func (e *Engine) ComputeEligibility(participants []*domain.Participant, grants []domain.AmnestyGrant, roundID string) ([]Result, error) {
	granted := make(map[domain.Address]bool, len(grants))
	for _, g := range grants {
		if g.RoundID == roundID {
			granted[g.Address] = true
		}
	}

	results := make([]Result, 0, len(participants))
	for _, p := range participants {
		d, err := e.Decide(p.Category, granted[p.Address])
		if err != nil {
			return nil, err
		}
		p.Eligible = d.Eligible
		results = append(results, Result{Address: p.Address, Decision: d})
	}
	return results, nil
}
