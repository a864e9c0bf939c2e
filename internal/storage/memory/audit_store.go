package memory

import (
	"context"
	"sync"

	"staking-reward-ledger/internal/storage"
)

// AuditEventStore is an in-memory implementation of storage.AuditEventStore.
// Append-only, like its ClickHouse counterpart.
type AuditEventStore struct {
	mu     sync.RWMutex
	events map[string][]*storage.AuditEvent // keyed by round id, insertion order
}

// NewAuditEventStore creates an empty in-memory audit store.
func NewAuditEventStore() *AuditEventStore {
	return &AuditEventStore{events: make(map[string][]*storage.AuditEvent)}
}

// Compile-time interface check.
var _ storage.AuditEventStore = (*AuditEventStore)(nil)

// Append records one event.
func (s *AuditEventStore) Append(_ context.Context, event *storage.AuditEvent) error {
	if event == nil || event.RoundID == "" || event.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *event
	s.events[event.RoundID] = append(s.events[event.RoundID], &eventCopy)
	return nil
}

// GetByRound retrieves all events for a round in insertion order.
func (s *AuditEventStore) GetByRound(_ context.Context, roundID string) ([]*storage.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.AuditEvent
	for _, e := range s.events[roundID] {
		eventCopy := *e
		result = append(result, &eventCopy)
	}
	return result, nil
}
