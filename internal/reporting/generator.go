package reporting

import (
	"context"
	"fmt"
	"time"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/idhash"
	"staking-reward-ledger/internal/storage"
)

// Generator produces round reports from stored data.
type Generator struct {
	rounds      storage.RoundStore
	allocations storage.AllocationStore
	flags       storage.FlagStore
	amnesty     storage.AmnestyStore
	audit       storage.AuditEventStore // optional
	now         func() time.Time        // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. audit may be nil.
func NewGenerator(
	rounds storage.RoundStore,
	allocations storage.AllocationStore,
	flags storage.FlagStore,
	amnesty storage.AmnestyStore,
	audit storage.AuditEventStore,
) *Generator {
	return &Generator{
		rounds:      rounds,
		allocations: allocations,
		flags:       flags,
		amnesty:     amnesty,
		audit:       audit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for one round. participants is the classified
// set the round was built from; it may be nil for a history-only report, in
// which case the category section is empty.
func (g *Generator) Generate(ctx context.Context, roundID string, participants []*domain.Participant) (*RoundReport, error) {
	round, err := g.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}

	report := &RoundReport{
		GeneratedAt: g.now(),
		RoundID:     round.ID,
		PeriodStart: round.PeriodStart,
		PeriodEnd:   round.PeriodEnd,
		Status:      round.Status,
		Categories:  buildCategorySection(participants),
		Pool:        PoolSection{TotalPool: round.TotalPool},
	}

	allocations, err := g.allocations.AllocationsByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	for _, a := range allocations {
		report.Allocations = append(report.Allocations, AllocationRow{
			Address:    a.Address,
			Amount:     a.Amount,
			Status:     a.Status,
			PaymentRef: idhash.PaymentRef(roundID, a.Address, a.Amount),
		})
		switch a.Status {
		case domain.AllocationExcluded:
			report.Pool.Excluded = report.Pool.Excluded.Add(a.Amount)
		case domain.AllocationApproved, domain.AllocationPaid:
			report.Pool.Distributed = report.Pool.Distributed.Add(a.Amount)
		}
	}

	flags, err := g.flags.FlagsByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}
	for _, f := range flags {
		report.Flags = append(report.Flags, FlagRow{
			Address:   f.Address,
			Risk:      f.Risk,
			Reasons:   f.Reasons,
			Decision:  f.Decision,
			DecidedBy: f.DecidedBy,
		})
	}

	grants, err := g.amnesty.GetByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load amnesty grants: %w", err)
	}
	for _, grant := range grants {
		report.Amnesties = append(report.Amnesties, AmnestyRow{
			Address:  grant.Address,
			Operator: grant.Operator,
			Reason:   grant.Reason,
		})
	}

	if g.audit != nil {
		events, err := g.audit.GetByRound(ctx, roundID)
		if err != nil {
			return nil, fmt.Errorf("load audit trail: %w", err)
		}
		for _, e := range events {
			report.AuditTrail = append(report.AuditTrail, AuditRow{
				At:     e.At,
				Kind:   e.Kind,
				Actor:  e.Actor,
				Detail: e.Detail,
			})
		}
	}

	return report, nil
}

// buildCategorySection tallies the classified set.
func buildCategorySection(participants []*domain.Participant) CategorySection {
	s := CategorySection{Total: len(participants)}
	for _, p := range participants {
		switch p.Category {
		case domain.CategoryPerfect:
			s.Perfect++
		case domain.CategoryMissedPurchase:
			s.MissedPurchase++
		case domain.CategorySoldToken:
			s.SoldToken++
			s.Blocked++
		case domain.CategoryTransferred:
			s.Transferred++
		}
		if p.Category.AmnestyAllowed() {
			s.AmnestyCandidates++
		}
		if p.Eligible {
			s.EligibleCount++
		}
	}
	if s.Total > 0 {
		s.EligibleRate = float64(s.EligibleCount) / float64(s.Total)
	}
	return s
}
