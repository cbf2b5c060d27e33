package domain

import (
	"time"

	"github.com/google/uuid"
)

type FactSource string

const (
	SourceUser     FactSource = "user"
	SourceSystem   FactSource = "system"
	SourceExternal FactSource = "external"
)

func ValidFactSource(s string) bool {
	switch FactSource(s) {
	case SourceUser, SourceSystem, SourceExternal:
		return true
	}
	return false
}

// DefaultTrust is the initial trust assigned when the extractor signals
// uncertainty (confidence unset).
const DefaultTrust float32 = 0.7

// Fact is one atomic, timestamped assertion made by a user within a
// conversation thread. Facts are immutable after creation except for Trust
// and Deprecated, which are mutated only through FactStore.UpdateTrust and
// FactStore.Deprecate.
type Fact struct {
	ID         uuid.UUID  `json:"id"`
	ThreadID   uuid.UUID  `json:"thread_id"`
	Slot       string     `json:"slot"`
	Value      string     `json:"value"`
	Trust      float32    `json:"trust"`
	Confidence float32    `json:"confidence"`
	Source     FactSource `json:"source"`
	Deprecated bool       `json:"deprecated"`
	Embedding  []float32  `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FactWithScore pairs a fact with a similarity score from retrieval.
type FactWithScore struct {
	Fact
	Score float32 `json:"score"`
}

// AnnotatedFact is a retrieval candidate after passing through the
// disclosure gate. ReintroducedClaim is true when the fact participates in
// an open conflict or revision ledger entry; Caveat carries any mandatory
// disclosure text.
type AnnotatedFact struct {
	FactWithScore
	ReintroducedClaim bool   `json:"reintroduced_claim"`
	Caveat            string `json:"caveat,omitempty"`
}

// ClampTrust bounds a trust value to [0, 1].
func ClampTrust(t float32) float32 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
