package memory

import (
	"context"
	"sort"
	"sync"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

// AmnestyStore is an in-memory implementation of storage.AmnestyStore.
type AmnestyStore struct {
	mu     sync.RWMutex
	grants map[allocKey]*domain.AmnestyGrant
}

// NewAmnestyStore creates an empty in-memory amnesty store.
func NewAmnestyStore() *AmnestyStore {
	return &AmnestyStore{grants: make(map[allocKey]*domain.AmnestyGrant)}
}

// Compile-time interface check.
var _ storage.AmnestyStore = (*AmnestyStore)(nil)

// Insert records a grant. One grant per (address, round).
func (s *AmnestyStore) Insert(_ context.Context, grant *domain.AmnestyGrant) error {
	if grant == nil || grant.RoundID == "" || grant.Operator == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := allocKey{addr: grant.Address, roundID: grant.RoundID}
	if _, exists := s.grants[key]; exists {
		return storage.ErrDuplicateKey
	}
	grantCopy := *grant
	s.grants[key] = &grantCopy
	return nil
}

// GetByRound retrieves all grants for a round, ordered by address.
func (s *AmnestyStore) GetByRound(_ context.Context, roundID string) ([]domain.AmnestyGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.AmnestyGrant
	for key, g := range s.grants {
		if key.roundID == roundID {
			result = append(result, *g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return domain.AddressLess(result[i].Address, result[j].Address)
	})
	return result, nil
}
