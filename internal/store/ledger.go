package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerColumns = `id, old_fact_id, new_fact_id, thread_id, slot, contradiction_type, drift_score, status, resolution_method, disclosed, created_at, resolved_at`

func scanEntry(row pgx.Row) (*domain.ContradictionEntry, error) {
	e := &domain.ContradictionEntry{}
	err := row.Scan(&e.ID, &e.OldFactID, &e.NewFactID, &e.ThreadID, &e.Slot,
		&e.ContradictionType, &e.DriftScore, &e.Status, &e.ResolutionMethod,
		&e.Disclosed, &e.CreatedAt, &e.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Append inserts an OPEN entry and applies the old fact's trust decay in
// one transaction. A ledger row without its decay (or the reverse) must
// never be observable.
func (s *LedgerStore) Append(ctx context.Context, e *domain.ContradictionEntry, decay *domain.TrustDecay) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e.Status = domain.StatusOpen
	err = tx.QueryRow(ctx,
		`INSERT INTO contradiction_ledger (old_fact_id, new_fact_id, thread_id, slot, contradiction_type, drift_score, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'open')
		 RETURNING id, created_at`,
		e.OldFactID, e.NewFactID, e.ThreadID, e.Slot, e.ContradictionType, e.DriftScore,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if decay != nil {
		tag, err := tx.Exec(ctx,
			`UPDATE facts SET trust = $1 WHERE id = $2`,
			domain.ClampTrust(decay.NewTrust), decay.FactID,
		)
		if err != nil {
			return fmt.Errorf("apply contradiction decay: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO trust_events (fact_id, old_trust, new_trust, reason)
			 VALUES ($1, $2, $3, $4)`,
			decay.FactID, decay.OldTrust, domain.ClampTrust(decay.NewTrust), decay.Reason,
		); err != nil {
			return fmt.Errorf("insert decay event: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *LedgerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContradictionEntry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM contradiction_ledger WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *LedgerStore) ListBySlot(ctx context.Context, threadID uuid.UUID, slot string, statuses []domain.LedgerStatus) ([]domain.ContradictionEntry, error) {
	conditions := []string{"thread_id = $1"}
	args := []any{threadID}

	if slot != "" {
		args = append(args, slot)
		conditions = append(conditions, fmt.Sprintf("slot = $%d", len(args)))
	}

	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, st := range statuses {
			args = append(args, st)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + ledgerColumns + ` FROM contradiction_ledger WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at ASC`

	return s.queryEntries(ctx, query, args...)
}

func (s *LedgerStore) ListOpenByFactIDs(ctx context.Context, factIDs []uuid.UUID) ([]domain.ContradictionEntry, error) {
	if len(factIDs) == 0 {
		return nil, nil
	}
	return s.queryEntries(ctx,
		`SELECT `+ledgerColumns+`
		 FROM contradiction_ledger
		 WHERE status = 'open' AND (old_fact_id = ANY($1) OR new_fact_id = ANY($1))
		 ORDER BY created_at ASC`,
		factIDs,
	)
}

func (s *LedgerStore) ListRecentlyResolvedByFactIDs(ctx context.Context, factIDs []uuid.UUID) ([]domain.ContradictionEntry, error) {
	if len(factIDs) == 0 {
		return nil, nil
	}
	return s.queryEntries(ctx,
		`SELECT `+ledgerColumns+`
		 FROM contradiction_ledger
		 WHERE status = 'resolved' AND NOT disclosed
		   AND (old_fact_id = ANY($1) OR new_fact_id = ANY($1))
		 ORDER BY resolved_at ASC`,
		factIDs,
	)
}

func (s *LedgerStore) ListStaleOpen(ctx context.Context, olderThanMinutes int, limit int) ([]domain.ContradictionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryEntries(ctx,
		`SELECT `+ledgerColumns+`
		 FROM contradiction_ledger
		 WHERE status = 'open' AND created_at < NOW() - ($1 || ' minutes')::interval
		 ORDER BY created_at ASC
		 LIMIT $2`,
		fmt.Sprintf("%d", olderThanMinutes), limit,
	)
}

func (s *LedgerStore) queryEntries(ctx context.Context, query string, args ...any) ([]domain.ContradictionEntry, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger query: %w", err)
	}
	defer rows.Close()

	var entries []domain.ContradictionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// pgExecutor is satisfied by both *pgxpool.Pool and pgx.Tx so the resolve
// update can run standalone or inside the override transaction.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Resolve advances an entry to RESOLVED. The WHERE clause only matches
// forward transitions; an existing entry that does not match signals an
// attempted backward move.
func (s *LedgerStore) Resolve(ctx context.Context, id uuid.UUID, method domain.ResolutionMethod) error {
	return s.resolve(ctx, s.db, id, method)
}

func (s *LedgerStore) resolve(ctx context.Context, q pgExecutor, id uuid.UUID, method domain.ResolutionMethod) error {
	tag, err := q.Exec(ctx,
		`UPDATE contradiction_ledger
		 SET status = 'resolved', resolution_method = $1, resolved_at = NOW()
		 WHERE id = $2 AND status IN ('open', 'deferred')`,
		method, id,
	)
	if err != nil {
		return fmt.Errorf("resolve ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrViolation(ctx, q, id)
	}
	return nil
}

// ResolveOverride resolves with OVERRIDE and deprecates the losing fact in
// the same transaction, so a resolved entry always has its fact flag.
func (s *LedgerStore) ResolveOverride(ctx context.Context, id uuid.UUID, oldFactID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin override: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.resolve(ctx, tx, id, domain.ResolutionOverride); err != nil {
		return err
	}

	var trust float32
	err = tx.QueryRow(ctx,
		`UPDATE facts SET deprecated = TRUE WHERE id = $1 RETURNING trust`,
		oldFactID,
	).Scan(&trust)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("deprecate overridden fact: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO trust_events (fact_id, old_trust, new_trust, reason)
		 VALUES ($1, $2, $2, $3)`,
		oldFactID, trust, domain.TrustReasonOverridden,
	); err != nil {
		return fmt.Errorf("insert override event: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *LedgerStore) Defer(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE contradiction_ledger SET status = 'deferred' WHERE id = $1 AND status = 'open'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("defer ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrViolation(ctx, s.db, id)
	}
	return nil
}

func (s *LedgerStore) MarkDisclosed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE contradiction_ledger SET disclosed = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *LedgerStore) missingOrViolation(ctx context.Context, q pgExecutor, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM contradiction_ledger WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return domain.ErrInvariantViolation
}
