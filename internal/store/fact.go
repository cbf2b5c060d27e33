package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type FactStore struct {
	db *pgxpool.Pool
}

func NewFactStore(db *pgxpool.Pool) *FactStore {
	return &FactStore{db: db}
}

const factColumns = `id, thread_id, slot, value, trust, confidence, source, deprecated, created_at`

func (s *FactStore) Create(ctx context.Context, f *domain.Fact) error {
	var embedding *pgvector.Vector
	if len(f.Embedding) > 0 {
		v := pgvector.NewVector(f.Embedding)
		embedding = &v
	}

	if f.Source == "" {
		f.Source = domain.SourceUser
	}

	// Trust starts at the extractor's confidence, or the configured
	// default when the caller signals uncertainty.
	if f.Trust == 0 {
		if f.Confidence > 0 {
			f.Trust = f.Confidence
		} else {
			f.Trust = domain.DefaultTrust
		}
	}
	f.Trust = domain.ClampTrust(f.Trust)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create fact: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO facts (thread_id, slot, value, trust, confidence, source, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		f.ThreadID, f.Slot, f.Value, f.Trust, f.Confidence, f.Source, embedding,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO trust_events (fact_id, old_trust, new_trust, reason)
		 VALUES ($1, $2, $3, $4)`,
		f.ID, f.Trust, f.Trust, domain.TrustReasonCreated,
	)
	if err != nil {
		return fmt.Errorf("insert creation trust event: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *FactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	f := &domain.Fact{}
	err := s.db.QueryRow(ctx,
		`SELECT `+factColumns+` FROM facts WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.ThreadID, &f.Slot, &f.Value, &f.Trust, &f.Confidence, &f.Source, &f.Deprecated, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FactStore) GetBySlot(ctx context.Context, threadID uuid.UUID, slot string, opts domain.FactQueryOpts) ([]domain.Fact, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := `SELECT ` + factColumns + `
		 FROM facts
		 WHERE thread_id = $1 AND slot = $2`
	if !opts.IncludeDeprecated {
		query += ` AND NOT deprecated`
	}
	query += ` ORDER BY created_at DESC LIMIT $3`

	rows, err := s.db.Query(ctx, query, threadID, slot, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("facts by slot query: %w", err)
	}
	defer rows.Close()

	var facts []domain.Fact
	for rows.Next() {
		var f domain.Fact
		if err := rows.Scan(&f.ID, &f.ThreadID, &f.Slot, &f.Value, &f.Trust, &f.Confidence, &f.Source, &f.Deprecated, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// UpdateTrust writes the new trust value and the audit event in one
// transaction so the projection never drifts from the log.
func (s *FactStore) UpdateTrust(ctx context.Context, id uuid.UUID, newTrust float32, reason string) error {
	newTrust = domain.ClampTrust(newTrust)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin trust update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldTrust float32
	err = tx.QueryRow(ctx,
		`SELECT trust FROM facts WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&oldTrust)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE facts SET trust = $1 WHERE id = $2`,
		newTrust, id,
	); err != nil {
		return fmt.Errorf("update fact trust: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO trust_events (fact_id, old_trust, new_trust, reason)
		 VALUES ($1, $2, $3, $4)`,
		id, oldTrust, newTrust, reason,
	); err != nil {
		return fmt.Errorf("insert trust event: %w", err)
	}

	return tx.Commit(ctx)
}

// Deprecate marks a fact superseded and records the reason in the audit
// log with an unchanged trust value.
func (s *FactStore) Deprecate(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deprecate: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var trust float32
	err = tx.QueryRow(ctx,
		`UPDATE facts SET deprecated = TRUE WHERE id = $1 RETURNING trust`,
		id,
	).Scan(&trust)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO trust_events (fact_id, old_trust, new_trust, reason)
		 VALUES ($1, $2, $2, $3)`,
		id, trust, reason,
	); err != nil {
		return fmt.Errorf("insert deprecation event: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *FactStore) SearchByEmbedding(ctx context.Context, threadID uuid.UUID, embedding []float32, k int) ([]domain.FactWithScore, error) {
	if k <= 0 {
		k = 10
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT `+factColumns+`, 1 - (embedding <=> $1) AS score
		 FROM facts
		 WHERE thread_id = $2 AND embedding IS NOT NULL AND NOT deprecated
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, threadID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding search query: %w", err)
	}
	defer rows.Close()

	var results []domain.FactWithScore
	for rows.Next() {
		var fs domain.FactWithScore
		err := rows.Scan(&fs.ID, &fs.ThreadID, &fs.Slot, &fs.Value, &fs.Trust, &fs.Confidence, &fs.Source, &fs.Deprecated, &fs.CreatedAt, &fs.Score)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, fs)
	}
	return results, rows.Err()
}
