// Package round drives a distribution round through its lifecycle:
// DRAFT -> PENDING_DUPLICATES -> FINALIZED, with ABORTED as the bail-out at
// any pre-finalize stage. Draft work (participants, provisional allocations,
// unresolved flags) lives in coordinator memory; nothing reaches storage
// until the atomic commit, so an abort or crash leaves no partial round
// behind.
package round

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"staking-reward-ledger/internal/allocation"
	"staking-reward-ledger/internal/classifier"
	"staking-reward-ledger/internal/dedup"
	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/eligibility"
	"staking-reward-ledger/internal/storage"
)

// ErrPendingFlags rejects finalization while any duplicate flag is still
// PENDING. There is no timeout that auto-resolves a flag; the only way
// forward is an explicit per-flag decision or a bulk directive.
var ErrPendingFlags = errors.New("round has unresolved duplicate flags")

// WeightFunc computes a participant's raw score for the allocator.
type WeightFunc func(p *domain.Participant) *big.Rat

// EqualWeight scores every eligible participant identically, so payouts are
// driven by category multipliers alone.
func EqualWeight(*domain.Participant) *big.Rat {
	return big.NewRat(1, 1)
}

// Config holds the coordinator's collaborators and parameters.
type Config struct {
	Rounds      storage.RoundStore
	Allocations storage.AllocationStore
	Amnesty     storage.AmnestyStore
	Audit       storage.AuditEventStore

	Runner *classifier.Runner
	Engine *eligibility.Engine
	Guard  *dedup.Guard

	// LookbackRounds bounds the duplicate guard's history query.
	LookbackRounds int

	// Weight defaults to EqualWeight.
	Weight WeightFunc

	Verbose bool
}

// draft is the in-memory state of a round that has not committed yet.
type draft struct {
	round        *domain.DistributionRound
	participants []*domain.Participant
	results      []eligibility.Result
	allocations  []*domain.RewardAllocation
	flags        []*domain.DuplicateFlag

	// allocated marks that AllocateRewards ran for the current results.
	// allocations alone cannot carry this: the allocator legitimately
	// returns nil when nobody is eligible.
	allocated bool
}

// Coordinator owns the round state machine.
type Coordinator struct {
	cfg Config

	// mu guards drafts and serializes finalization: at most one round
	// transitions to FINALIZED at a time.
	mu     sync.Mutex
	drafts map[string]*draft
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Weight == nil {
		cfg.Weight = EqualWeight
	}
	if cfg.LookbackRounds <= 0 {
		cfg.LookbackRounds = dedup.DefaultConfig().LookbackRounds
	}
	return &Coordinator{cfg: cfg, drafts: make(map[string]*draft)}
}

// RoundParams configures a new round.
type RoundParams struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalPool   domain.Amount
	Multipliers domain.CategoryMultipliers

	// Supersedes names the finalized round this one corrects, if any.
	Supersedes string
}

// BeginRound opens a fresh DRAFT round. Every round gets a new id; aborted
// ids are never reused.
func (c *Coordinator) BeginRound(ctx context.Context, params RoundParams) (*domain.DistributionRound, error) {
	if !params.PeriodStart.Before(params.PeriodEnd) {
		return nil, fmt.Errorf("begin round: period start %s not before end %s", params.PeriodStart, params.PeriodEnd)
	}
	if params.TotalPool.Sign() < 0 {
		return nil, fmt.Errorf("begin round: negative pool %s", params.TotalPool)
	}

	r := &domain.DistributionRound{
		ID:          uuid.NewString(),
		PeriodStart: params.PeriodStart,
		PeriodEnd:   params.PeriodEnd,
		TotalPool:   params.TotalPool,
		Multipliers: params.Multipliers,
		Status:      domain.RoundDraft,
		CreatedAt:   time.Now().UTC(),
		Supersedes:  params.Supersedes,
	}

	if err := c.cfg.Rounds.BeginRound(ctx, r); err != nil {
		return nil, fmt.Errorf("begin round: %w", err)
	}

	c.mu.Lock()
	c.drafts[r.ID] = &draft{round: r}
	c.mu.Unlock()

	c.audit(ctx, r.ID, storage.AuditRoundCreated, "system",
		fmt.Sprintf("period %s..%s pool %s", r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02"), r.TotalPool))
	c.log("round %s created", r.ID)
	return r, nil
}

// Classify runs the classifier over the address set and attaches the
// participants to the draft. An upstream failure leaves the round in DRAFT;
// the caller may retry.
func (c *Coordinator) Classify(ctx context.Context, roundID string, addrs []domain.Address) ([]*domain.Participant, error) {
	d, err := c.draftFor(roundID, domain.RoundDraft)
	if err != nil {
		return nil, err
	}

	participants, err := c.cfg.Runner.Classify(ctx, d.round.PeriodStart, d.round.PeriodEnd, addrs)
	if err != nil {
		// Round stays DRAFT: retryable, not aborted.
		return nil, fmt.Errorf("classify round %s: %w", roundID, err)
	}

	c.mu.Lock()
	d.participants = participants
	d.results = nil
	d.allocations = nil
	d.allocated = false
	c.mu.Unlock()

	c.audit(ctx, roundID, storage.AuditRoundClassified, "system",
		fmt.Sprintf("%d addresses classified", len(participants)))
	return participants, nil
}

// GrantAmnesty records an operator override for one (address, round).
// Attaching a grant to a SOLD_TOKEN address is an invariant violation and
// nothing is recorded.
func (c *Coordinator) GrantAmnesty(ctx context.Context, grant *domain.AmnestyGrant) error {
	if grant == nil || grant.Operator == "" || grant.Reason == "" {
		return storage.ErrInvalidInput
	}

	d, err := c.draftFor(grant.RoundID, domain.RoundDraft)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, p := range d.participants {
		if p.Address == grant.Address && p.Category == domain.CategorySoldToken {
			c.mu.Unlock()
			return domain.Violation(domain.InvariantAmnestyOnSeller,
				"amnesty for %s rejected: address sold tokens", grant.Address.Hex())
		}
	}
	c.mu.Unlock()

	if err := c.cfg.Amnesty.Insert(ctx, grant); err != nil {
		return fmt.Errorf("grant amnesty: %w", err)
	}

	c.audit(ctx, grant.RoundID, storage.AuditAmnestyGranted, grant.Operator, grant.Reason)
	c.log("amnesty granted to %s in round %s", grant.Address.Hex(), grant.RoundID)
	return nil
}

// ComputeEligibility evaluates the classified set against the round's
// amnesty grants.
func (c *Coordinator) ComputeEligibility(ctx context.Context, roundID string) ([]eligibility.Result, error) {
	d, err := c.draftFor(roundID, domain.RoundDraft)
	if err != nil {
		return nil, err
	}
	if d.participants == nil {
		return nil, fmt.Errorf("compute eligibility: round %s not classified", roundID)
	}

	grants, err := c.cfg.Amnesty.GetByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load amnesty grants: %w", err)
	}

	results, err := c.cfg.Engine.ComputeEligibility(d.participants, grants, roundID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	d.results = results
	d.allocations = nil
	d.allocated = false
	c.mu.Unlock()
	return results, nil
}

// AllocateRewards computes the round's payouts from the eligible set.
// The full pool is distributed exactly whenever anyone is eligible.
func (c *Coordinator) AllocateRewards(ctx context.Context, roundID string) ([]*domain.RewardAllocation, error) {
	d, err := c.draftFor(roundID, domain.RoundDraft)
	if err != nil {
		return nil, err
	}
	if d.results == nil {
		return nil, fmt.Errorf("allocate rewards: round %s has no eligibility results", roundID)
	}

	byAddr := make(map[domain.Address]*domain.Participant, len(d.participants))
	for _, p := range d.participants {
		byAddr[p.Address] = p
	}

	var entries []allocation.Entry
	for _, res := range d.results {
		if !res.Eligible {
			continue
		}
		entries = append(entries, allocation.Entry{
			Address:           res.Address,
			EffectiveCategory: res.EffectiveCategory,
			Weight:            c.cfg.Weight(byAddr[res.Address]),
		})
	}

	allocations, err := allocation.Allocate(roundID, entries, d.round.TotalPool, d.round.Multipliers)
	if err != nil {
		return nil, fmt.Errorf("allocate rewards for round %s: %w", roundID, err)
	}

	c.mu.Lock()
	d.allocations = allocations
	d.allocated = true
	c.mu.Unlock()

	c.log("round %s: %d allocations over pool %s", roundID, len(allocations), d.round.TotalPool)
	return allocations, nil
}

// DetectDuplicates cross-checks the draft allocations against prior PAID
// history and parks the round in PENDING_DUPLICATES. The round parks even
// with zero flags: finalization always goes through the parked state.
func (c *Coordinator) DetectDuplicates(ctx context.Context, roundID string) ([]*domain.DuplicateFlag, error) {
	d, err := c.draftFor(roundID, domain.RoundDraft)
	if err != nil {
		return nil, err
	}
	if !d.allocated {
		return nil, fmt.Errorf("detect duplicates: round %s has no allocations", roundID)
	}

	prior, err := c.cfg.Allocations.PriorPaid(ctx, c.cfg.LookbackRounds)
	if err != nil {
		// Retryable: round stays DRAFT.
		return nil, fmt.Errorf("load prior payments: %w", err)
	}

	flags := c.cfg.Guard.Detect(d.allocations, prior)

	if err := c.cfg.Rounds.SetRoundStatus(ctx, roundID, domain.RoundDraft, domain.RoundPendingDuplicates); err != nil {
		return nil, fmt.Errorf("park round %s: %w", roundID, err)
	}

	c.mu.Lock()
	d.flags = flags
	d.round.Status = domain.RoundPendingDuplicates
	c.mu.Unlock()

	c.audit(ctx, roundID, storage.AuditRoundParked, "system",
		fmt.Sprintf("%d duplicate flags raised", len(flags)))
	c.log("round %s parked with %d flags", roundID, len(flags))
	return flags, nil
}

// ResolveDuplicate records one operator decision on a parked round's flag.
func (c *Coordinator) ResolveDuplicate(ctx context.Context, roundID string, addr domain.Address, decision domain.FlagDecision, operator string) error {
	if decision != domain.DecisionInclude && decision != domain.DecisionExclude {
		return storage.ErrInvalidInput
	}
	if operator == "" {
		return storage.ErrInvalidInput
	}

	d, err := c.draftFor(roundID, domain.RoundPendingDuplicates)
	if err != nil {
		return err
	}

	c.mu.Lock()
	var flag *domain.DuplicateFlag
	for _, f := range d.flags {
		if f.Address == addr {
			flag = f
			break
		}
	}
	if flag == nil {
		c.mu.Unlock()
		return storage.ErrNotFound
	}
	flag.Decision = decision
	flag.DecidedBy = operator
	flag.DecidedAt = time.Now().UTC()
	c.mu.Unlock()

	c.audit(ctx, roundID, storage.AuditFlagResolved, operator,
		fmt.Sprintf("%s -> %s", addr.Hex(), decision))
	return nil
}

// ResolveAll applies one decision to every still-PENDING flag of a parked
// round. This is the recorded bulk directive; it is attributed to the
// operator like any single decision, never a silent default.
func (c *Coordinator) ResolveAll(ctx context.Context, roundID string, decision domain.FlagDecision, operator string) (int, error) {
	if decision != domain.DecisionInclude && decision != domain.DecisionExclude {
		return 0, storage.ErrInvalidInput
	}
	if operator == "" {
		return 0, storage.ErrInvalidInput
	}

	d, err := c.draftFor(roundID, domain.RoundPendingDuplicates)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	now := time.Now().UTC()
	resolved := 0
	for _, f := range d.flags {
		if f.Decision != domain.DecisionPending {
			continue
		}
		f.Decision = decision
		f.DecidedBy = operator
		f.DecidedAt = now
		resolved++
	}
	c.mu.Unlock()

	c.audit(ctx, roundID, storage.AuditBulkDirective, operator,
		fmt.Sprintf("%d flags -> %s", resolved, decision))
	c.log("round %s: bulk directive %s resolved %d flags", roundID, decision, resolved)
	return resolved, nil
}

// FinalizeRound commits the round atomically. Excluded flags demote their
// allocations to EXCLUDED; everything else lands APPROVED. A round with any
// PENDING flag cannot finalize. Finalization is serialized; a concurrent
// attempt on the same round observes ErrConflict from the storage commit.
func (c *Coordinator) FinalizeRound(ctx context.Context, roundID string) (*domain.DistributionRound, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, exists := c.drafts[roundID]
	if !exists {
		// No draft state: either an unknown round or one already committed.
		if _, err := c.cfg.Rounds.GetRound(ctx, roundID); err != nil {
			return nil, err
		}
		return nil, storage.ErrConflict
	}

	excluded := make(map[domain.Address]bool)
	for _, f := range d.flags {
		switch f.Decision {
		case domain.DecisionPending:
			return nil, fmt.Errorf("finalize round %s: %w", roundID, ErrPendingFlags)
		case domain.DecisionExclude:
			excluded[f.Address] = true
		}
	}

	total := domain.NewAmount(0)
	for _, a := range d.allocations {
		if excluded[a.Address] {
			a.Status = domain.AllocationExcluded
		} else {
			a.Status = domain.AllocationApproved
			total = total.Add(a.Amount)
		}
	}
	if total.Cmp(d.round.TotalPool) > 0 {
		return nil, domain.Violation(domain.InvariantPoolNotExceeded,
			"approved allocations %s exceed pool %s", total, d.round.TotalPool)
	}

	if err := c.cfg.Rounds.CommitRound(ctx, roundID, d.allocations, d.flags); err != nil {
		return nil, fmt.Errorf("commit round %s: %w", roundID, err)
	}

	delete(c.drafts, roundID)

	committed, err := c.cfg.Rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load committed round %s: %w", roundID, err)
	}

	c.audit(ctx, roundID, storage.AuditRoundFinalized, "system",
		fmt.Sprintf("%d allocations, %d excluded", len(d.allocations), len(excluded)))
	c.log("round %s finalized", roundID)
	return committed, nil
}

// AbortRound discards all draft work for a round. Nothing produced during
// classification or allocation survives; the id is never reused.
func (c *Coordinator) AbortRound(ctx context.Context, roundID string, operator string) error {
	if err := c.cfg.Rounds.AbortRound(ctx, roundID); err != nil {
		return fmt.Errorf("abort round %s: %w", roundID, err)
	}

	c.mu.Lock()
	delete(c.drafts, roundID)
	c.mu.Unlock()

	actor := operator
	if actor == "" {
		actor = "system"
	}
	c.audit(ctx, roundID, storage.AuditRoundAborted, actor, "draft state discarded")
	c.log("round %s aborted", roundID)
	return nil
}

// Flags returns the current flag set of a parked round.
func (c *Coordinator) Flags(roundID string) ([]*domain.DuplicateFlag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, exists := c.drafts[roundID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	out := make([]*domain.DuplicateFlag, len(d.flags))
	copy(out, d.flags)
	return out, nil
}

// Participants returns the classified set of a draft round.
func (c *Coordinator) Participants(roundID string) ([]*domain.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, exists := c.drafts[roundID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	out := make([]*domain.Participant, len(d.participants))
	copy(out, d.participants)
	return out, nil
}

// draftFor fetches the draft and checks the round's in-memory status.
// A FINALIZED or missing round yields ErrConflict / ErrNotFound.
func (c *Coordinator) draftFor(roundID string, want domain.RoundStatus) (*draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, exists := c.drafts[roundID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	if d.round.Status != want {
		return nil, storage.ErrConflict
	}
	return d, nil
}

// audit appends a lifecycle event; audit failures are logged, not fatal,
// because the event log is advisory next to the ledger itself.
func (c *Coordinator) audit(ctx context.Context, roundID, kind, actor, detail string) {
	if c.cfg.Audit == nil {
		return
	}
	err := c.cfg.Audit.Append(ctx, &storage.AuditEvent{
		RoundID: roundID,
		Kind:    kind,
		Actor:   actor,
		At:      time.Now().UTC(),
		Detail:  detail,
	})
	if err != nil {
		log.Printf("[round] audit append failed for %s: %v", roundID, err)
	}
}

func (c *Coordinator) log(format string, args ...interface{}) {
	if c.cfg.Verbose {
		log.Printf("[round] "+format, args...)
	}
}
