package service

import (
	"context"
	"errors"
	"time"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/blockhead22/crt/internal/store"
	"github.com/google/uuid"
)

type mockFactStore struct {
	facts map[uuid.UUID]*domain.Fact
	// ordered ids per (thread, slot) so GetBySlot can return newest first
	bySlot map[string][]uuid.UUID

	trustUpdates []struct {
		id     uuid.UUID
		trust  float32
		reason string
	}
	searchResults []domain.FactWithScore
	searchErr     error
}

func newMockFactStore() *mockFactStore {
	return &mockFactStore{
		facts:  make(map[uuid.UUID]*domain.Fact),
		bySlot: make(map[string][]uuid.UUID),
	}
}

func slotKey(threadID uuid.UUID, slot string) string {
	return threadID.String() + "/" + slot
}

func (m *mockFactStore) Create(ctx context.Context, f *domain.Fact) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	m.facts[f.ID] = f
	key := slotKey(f.ThreadID, f.Slot)
	m.bySlot[key] = append([]uuid.UUID{f.ID}, m.bySlot[key]...)
	return nil
}

func (m *mockFactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	f, ok := m.facts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f, nil
}

func (m *mockFactStore) GetBySlot(ctx context.Context, threadID uuid.UUID, slot string, opts domain.FactQueryOpts) ([]domain.Fact, error) {
	var out []domain.Fact
	for _, id := range m.bySlot[slotKey(threadID, slot)] {
		f := m.facts[id]
		if f.Deprecated && !opts.IncludeDeprecated {
			continue
		}
		out = append(out, *f)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockFactStore) UpdateTrust(ctx context.Context, id uuid.UUID, newTrust float32, reason string) error {
	f, ok := m.facts[id]
	if !ok {
		return store.ErrNotFound
	}
	f.Trust = newTrust
	m.trustUpdates = append(m.trustUpdates, struct {
		id     uuid.UUID
		trust  float32
		reason string
	}{id, newTrust, reason})
	return nil
}

func (m *mockFactStore) Deprecate(ctx context.Context, id uuid.UUID, reason string) error {
	f, ok := m.facts[id]
	if !ok {
		return store.ErrNotFound
	}
	f.Deprecated = true
	return nil
}

func (m *mockFactStore) SearchByEmbedding(ctx context.Context, threadID uuid.UUID, embedding []float32, k int) ([]domain.FactWithScore, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

type mockLedgerStore struct {
	entries map[uuid.UUID]*domain.ContradictionEntry
	// decays recorded per Append, keyed by the ledger id
	decays    map[uuid.UUID]*domain.TrustDecay
	facts     *mockFactStore
	appendErr error
}

func newMockLedgerStore(facts *mockFactStore) *mockLedgerStore {
	return &mockLedgerStore{
		entries: make(map[uuid.UUID]*domain.ContradictionEntry),
		decays:  make(map[uuid.UUID]*domain.TrustDecay),
		facts:   facts,
	}
}

func (m *mockLedgerStore) Append(ctx context.Context, e *domain.ContradictionEntry, decay *domain.TrustDecay) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	e.ID = uuid.New()
	e.Status = domain.StatusOpen
	e.CreatedAt = time.Now()
	m.entries[e.ID] = e
	if decay != nil {
		m.decays[e.ID] = decay
		if m.facts != nil {
			if f, ok := m.facts.facts[decay.FactID]; ok {
				f.Trust = decay.NewTrust
			}
		}
	}
	return nil
}

func (m *mockLedgerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContradictionEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e, nil
}

func (m *mockLedgerStore) ListBySlot(ctx context.Context, threadID uuid.UUID, slot string, statuses []domain.LedgerStatus) ([]domain.ContradictionEntry, error) {
	var out []domain.ContradictionEntry
	for _, e := range m.entries {
		if e.ThreadID != threadID {
			continue
		}
		if slot != "" && e.Slot != slot {
			continue
		}
		if len(statuses) > 0 {
			found := false
			for _, st := range statuses {
				if e.Status == st {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *mockLedgerStore) ListOpenByFactIDs(ctx context.Context, factIDs []uuid.UUID) ([]domain.ContradictionEntry, error) {
	var out []domain.ContradictionEntry
	for _, e := range m.entries {
		if e.Status != domain.StatusOpen {
			continue
		}
		for _, id := range factIDs {
			if e.References(id) {
				out = append(out, *e)
				break
			}
		}
	}
	return out, nil
}

func (m *mockLedgerStore) ListRecentlyResolvedByFactIDs(ctx context.Context, factIDs []uuid.UUID) ([]domain.ContradictionEntry, error) {
	var out []domain.ContradictionEntry
	for _, e := range m.entries {
		if e.Status != domain.StatusResolved || e.Disclosed {
			continue
		}
		for _, id := range factIDs {
			if e.References(id) {
				out = append(out, *e)
				break
			}
		}
	}
	return out, nil
}

func (m *mockLedgerStore) ListStaleOpen(ctx context.Context, olderThanMinutes int, limit int) ([]domain.ContradictionEntry, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)
	var out []domain.ContradictionEntry
	for _, e := range m.entries {
		if e.Status == domain.StatusOpen && e.CreatedAt.Before(cutoff) {
			out = append(out, *e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockLedgerStore) Resolve(ctx context.Context, id uuid.UUID, method domain.ResolutionMethod) error {
	e, ok := m.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	if !domain.CanTransition(e.Status, domain.StatusResolved) {
		return domain.ErrInvariantViolation
	}
	now := time.Now()
	e.Status = domain.StatusResolved
	e.ResolutionMethod = &method
	e.ResolvedAt = &now
	return nil
}

func (m *mockLedgerStore) ResolveOverride(ctx context.Context, id uuid.UUID, oldFactID uuid.UUID) error {
	if err := m.Resolve(ctx, id, domain.ResolutionOverride); err != nil {
		return err
	}
	if m.facts != nil {
		return m.facts.Deprecate(ctx, oldFactID, "overridden")
	}
	return nil
}

func (m *mockLedgerStore) Defer(ctx context.Context, id uuid.UUID) error {
	e, ok := m.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	if !domain.CanTransition(e.Status, domain.StatusDeferred) {
		return domain.ErrInvariantViolation
	}
	e.Status = domain.StatusDeferred
	return nil
}

func (m *mockLedgerStore) MarkDisclosed(ctx context.Context, id uuid.UUID) error {
	e, ok := m.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Disclosed = true
	return nil
}

// singleEntry returns the only ledger entry, for tests that expect exactly
// one to exist.
func (m *mockLedgerStore) singleEntry() *domain.ContradictionEntry {
	for _, e := range m.entries {
		return e
	}
	return nil
}

type mockExtractor struct {
	tuples []domain.ExtractedFact
	err    error
	delay  time.Duration
}

func (m *mockExtractor) Extract(ctx context.Context, text string) ([]domain.ExtractedFact, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.tuples, nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	// fixed-length vector derived from text length, enough for wiring tests
	v := make([]float32, 4)
	v[0] = float32(len(text) % 7)
	v[1] = 1
	return v, nil
}

type mockSearcher struct {
	results []domain.FactWithScore
	err     error
	delay   time.Duration
}

func (m *mockSearcher) Search(ctx context.Context, threadID uuid.UUID, query string, k int) ([]domain.FactWithScore, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

var errBoom = errors.New("boom")

var (
	_ domain.FactStore          = (*mockFactStore)(nil)
	_ domain.LedgerStore        = (*mockLedgerStore)(nil)
	_ domain.FactExtractor      = (*mockExtractor)(nil)
	_ domain.EmbeddingClient    = (*mockEmbedder)(nil)
	_ domain.SimilaritySearcher = (*mockSearcher)(nil)
)
