package clickhouse

import (
	"context"
	"fmt"
	"time"

	"staking-reward-ledger/internal/storage"
)

// AuditEventStore implements storage.AuditEventStore using ClickHouse.
// The table is append-only MergeTree; events are never updated or deleted.
type AuditEventStore struct {
	conn *Conn
}

// NewAuditEventStore creates a new AuditEventStore.
func NewAuditEventStore(conn *Conn) *AuditEventStore {
	return &AuditEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditEventStore = (*AuditEventStore)(nil)

// Append records one event.
func (s *AuditEventStore) Append(ctx context.Context, event *storage.AuditEvent) error {
	if event == nil || event.RoundID == "" || event.Kind == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO audit_events (round_id, kind, actor, at, detail)
		VALUES (?, ?, ?, ?, ?)
	`

	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if err := s.conn.Exec(ctx, query, event.RoundID, event.Kind, event.Actor, at, event.Detail); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// AppendBulk records multiple events in one batch.
func (s *AuditEventStore) AppendBulk(ctx context.Context, events []*storage.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_events (round_id, kind, actor, at, detail)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if e == nil || e.RoundID == "" || e.Kind == "" {
			return storage.ErrInvalidInput
		}
		at := e.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		if err := batch.Append(e.RoundID, e.Kind, e.Actor, at, e.Detail); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRound retrieves all events for a round, ordered by time ASC.
func (s *AuditEventStore) GetByRound(ctx context.Context, roundID string) ([]*storage.AuditEvent, error) {
	query := `
		SELECT round_id, kind, actor, at, detail
		FROM audit_events
		WHERE round_id = ?
		ORDER BY at ASC
	`

	rows, err := s.conn.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("query audit events by round: %w", err)
	}
	defer rows.Close()

	var events []*storage.AuditEvent
	for rows.Next() {
		var e storage.AuditEvent
		if err := rows.Scan(&e.RoundID, &e.Kind, &e.Actor, &e.At, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit event rows: %w", err)
	}
	return events, nil
}
