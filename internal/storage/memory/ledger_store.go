package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

// allocKey identifies one allocation row.
type allocKey struct {
	addr    domain.Address
	roundID string
}

// LedgerStore is an in-memory implementation of storage.RoundStore,
// storage.AllocationStore, and storage.FlagStore. The three live together
// because CommitRound must write round status, allocations, and flags as one
// atomic unit.
type LedgerStore struct {
	mu             sync.RWMutex
	rounds         map[string]*domain.DistributionRound
	allocations    map[allocKey]*domain.RewardAllocation
	flags          map[string][]*domain.DuplicateFlag // keyed by round id
	finalizedOrder []string                           // round ids in finalization order
}

// NewLedgerStore creates an empty in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		rounds:      make(map[string]*domain.DistributionRound),
		allocations: make(map[allocKey]*domain.RewardAllocation),
		flags:       make(map[string][]*domain.DuplicateFlag),
	}
}

// Compile-time interface checks.
var (
	_ storage.RoundStore      = (*LedgerStore)(nil)
	_ storage.AllocationStore = (*LedgerStore)(nil)
	_ storage.FlagStore       = (*LedgerStore)(nil)
)

// BeginRound inserts a new round in DRAFT status.
func (s *LedgerStore) BeginRound(_ context.Context, round *domain.DistributionRound) error {
	if round == nil || round.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rounds[round.ID]; exists {
		return storage.ErrDuplicateKey
	}

	roundCopy := *round
	roundCopy.Status = domain.RoundDraft
	s.rounds[round.ID] = &roundCopy
	return nil
}

// GetRound retrieves a round by id.
func (s *LedgerStore) GetRound(_ context.Context, id string) (*domain.DistributionRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rounds[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	roundCopy := *r
	return &roundCopy, nil
}

// SetRoundStatus moves a round between statuses with compare-and-swap semantics.
func (s *LedgerStore) SetRoundStatus(_ context.Context, id string, from, to domain.RoundStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rounds[id]
	if !exists {
		return storage.ErrNotFound
	}
	if r.Status != from {
		return storage.ErrConflict
	}
	r.Status = to
	return nil
}

// CommitRound finalizes a round atomically. All validation happens before the
// first write, so a failed commit leaves the store untouched.
func (s *LedgerStore) CommitRound(_ context.Context, roundID string, allocations []*domain.RewardAllocation, flags []*domain.DuplicateFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rounds[roundID]
	if !exists {
		return storage.ErrNotFound
	}
	if r.Status != domain.RoundPendingDuplicates {
		return storage.ErrConflict
	}

	seen := make(map[allocKey]bool, len(allocations))
	for _, a := range allocations {
		key := allocKey{addr: a.Address, roundID: a.RoundID}
		if a.RoundID != roundID {
			return storage.ErrInvalidInput
		}
		if seen[key] {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.allocations[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = true
	}

	for _, a := range allocations {
		allocCopy := *a
		s.allocations[allocKey{addr: a.Address, roundID: a.RoundID}] = &allocCopy
	}
	for _, f := range flags {
		flagCopy := *f
		s.flags[roundID] = append(s.flags[roundID], &flagCopy)
	}
	r.Status = domain.RoundFinalized
	r.FinalizedAt = time.Now().UTC()
	s.finalizedOrder = append(s.finalizedOrder, roundID)
	return nil
}

// AbortRound marks a round ABORTED. Finalized rounds cannot be aborted.
func (s *LedgerStore) AbortRound(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rounds[id]
	if !exists {
		return storage.ErrNotFound
	}
	if r.Status == domain.RoundFinalized {
		return storage.ErrConflict
	}
	r.Status = domain.RoundAborted
	return nil
}

// AllocationsByRound retrieves a finalized round's allocations, ordered by address.
func (s *LedgerStore) AllocationsByRound(_ context.Context, roundID string) ([]*domain.RewardAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RewardAllocation
	for key, a := range s.allocations {
		if key.roundID == roundID {
			allocCopy := *a
			result = append(result, &allocCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return domain.AddressLess(result[i].Address, result[j].Address)
	})
	return result, nil
}

// PriorPaid retrieves PAID allocations from the last lookbackRounds finalized
// rounds, most recent first.
func (s *LedgerStore) PriorPaid(_ context.Context, lookbackRounds int) ([]storage.PriorPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.PriorPayment
	for ago := 1; ago <= lookbackRounds && ago <= len(s.finalizedOrder); ago++ {
		roundID := s.finalizedOrder[len(s.finalizedOrder)-ago]

		var roundAllocs []*domain.RewardAllocation
		for key, a := range s.allocations {
			if key.roundID == roundID && a.Status == domain.AllocationPaid {
				allocCopy := *a
				roundAllocs = append(roundAllocs, &allocCopy)
			}
		}
		sort.Slice(roundAllocs, func(i, j int) bool {
			return domain.AddressLess(roundAllocs[i].Address, roundAllocs[j].Address)
		})
		for _, a := range roundAllocs {
			result = append(result, storage.PriorPayment{Allocation: a, RoundsAgo: ago})
		}
	}
	return result, nil
}

// SetAllocationStatus updates one allocation's payment status.
func (s *LedgerStore) SetAllocationStatus(_ context.Context, addr domain.Address, roundID string, status domain.AllocationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.allocations[allocKey{addr: addr, roundID: roundID}]
	if !exists {
		return storage.ErrNotFound
	}
	a.Status = status
	return nil
}

// FlagsByRound retrieves the flags recorded for a finalized round.
func (s *LedgerStore) FlagsByRound(_ context.Context, roundID string) ([]*domain.DuplicateFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DuplicateFlag
	for _, f := range s.flags[roundID] {
		flagCopy := *f
		result = append(result, &flagCopy)
	}
	return result, nil
}
