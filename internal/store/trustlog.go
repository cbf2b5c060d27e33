package store

import (
	"context"
	"fmt"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrustLogStore reads the append-only trust audit log. Writes happen
// alongside the fact and ledger mutations that cause them, inside those
// stores' transactions.
type TrustLogStore struct {
	db *pgxpool.Pool
}

func NewTrustLogStore(db *pgxpool.Pool) *TrustLogStore {
	return &TrustLogStore{db: db}
}

func (s *TrustLogStore) ListByFact(ctx context.Context, factID uuid.UUID) ([]domain.TrustEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, fact_id, old_trust, new_trust, reason, created_at
		 FROM trust_events WHERE fact_id = $1
		 ORDER BY created_at ASC`,
		factID,
	)
	if err != nil {
		return nil, fmt.Errorf("trust log query: %w", err)
	}
	defer rows.Close()

	var events []domain.TrustEvent
	for rows.Next() {
		var e domain.TrustEvent
		if err := rows.Scan(&e.ID, &e.FactID, &e.OldTrust, &e.NewTrust, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trust event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
