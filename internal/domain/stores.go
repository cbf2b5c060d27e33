package domain

import (
	"context"

	"github.com/google/uuid"
)

type FactQueryOpts struct {
	IncludeDeprecated bool
	Limit             int
}

type FactStore interface {
	Create(ctx context.Context, f *Fact) error
	GetByID(ctx context.Context, id uuid.UUID) (*Fact, error)
	// GetBySlot returns facts for a slot ordered by created_at descending.
	GetBySlot(ctx context.Context, threadID uuid.UUID, slot string, opts FactQueryOpts) ([]Fact, error)
	// UpdateTrust sets the fact's current trust and appends the matching
	// trust event in the same transaction.
	UpdateTrust(ctx context.Context, id uuid.UUID, newTrust float32, reason string) error
	// Deprecate marks a fact superseded. Idempotent.
	Deprecate(ctx context.Context, id uuid.UUID, reason string) error
	// SearchByEmbedding returns the k nearest facts by cosine similarity.
	SearchByEmbedding(ctx context.Context, threadID uuid.UUID, embedding []float32, k int) ([]FactWithScore, error)
}

// TrustDecay describes the trust mutation applied to the older fact when a
// ledger entry is opened. The ledger append and this update commit in one
// transaction so a contradiction is never recorded without its decay.
type TrustDecay struct {
	FactID   uuid.UUID
	OldTrust float32
	NewTrust float32
	Reason   string
}

type LedgerStore interface {
	// Append inserts a new OPEN entry and applies the old fact's trust
	// decay atomically.
	Append(ctx context.Context, e *ContradictionEntry, decay *TrustDecay) error
	GetByID(ctx context.Context, id uuid.UUID) (*ContradictionEntry, error)
	// ListBySlot filters by thread, optionally by slot (empty matches all)
	// and status set (empty matches all).
	ListBySlot(ctx context.Context, threadID uuid.UUID, slot string, statuses []LedgerStatus) ([]ContradictionEntry, error)
	// ListOpenByFactIDs returns OPEN entries referencing any of the given
	// facts on either side.
	ListOpenByFactIDs(ctx context.Context, factIDs []uuid.UUID) ([]ContradictionEntry, error)
	ListRecentlyResolvedByFactIDs(ctx context.Context, factIDs []uuid.UUID) ([]ContradictionEntry, error)
	// ListStaleOpen returns OPEN entries older than the given number of
	// minutes, for the review sweep.
	ListStaleOpen(ctx context.Context, olderThanMinutes int, limit int) ([]ContradictionEntry, error)
	// Resolve advances an entry to RESOLVED with the given method.
	// Backward transitions return ErrInvariantViolation.
	Resolve(ctx context.Context, id uuid.UUID, method ResolutionMethod) error
	// ResolveOverride resolves with method OVERRIDE and deprecates the old
	// fact in the same transaction.
	ResolveOverride(ctx context.Context, id uuid.UUID, oldFactID uuid.UUID) error
	// Defer marks an entry DEFERRED so it stays open for future attempts
	// without re-prompting every turn.
	Defer(ctx context.Context, id uuid.UUID) error
	// MarkDisclosed records that the mandatory post-resolution caveat has
	// been surfaced once.
	MarkDisclosed(ctx context.Context, id uuid.UUID) error
}

type TrustLogStore interface {
	ListByFact(ctx context.Context, factID uuid.UUID) ([]TrustEvent, error)
}

// ExtractedFact is one (slot, value, confidence) tuple produced by the
// fact extractor from raw user text.
type ExtractedFact struct {
	Slot       string  `json:"slot"`
	Value      string  `json:"value"`
	Confidence float32 `json:"confidence"`
}

// FactExtractor turns free text into structured assertions. It may return
// an empty slice. Deduplication of repeated source text is the caller's
// concern.
type FactExtractor interface {
	Extract(ctx context.Context, text string) ([]ExtractedFact, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SimilaritySearcher is the retrieval collaborator: ranked candidate facts
// for a query, scores in [0,1], higher is more relevant.
type SimilaritySearcher interface {
	Search(ctx context.Context, threadID uuid.UUID, query string, k int) ([]FactWithScore, error)
}
