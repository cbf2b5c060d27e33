package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvariantViolation is returned when code attempts to move a ledger
// entry backward (e.g. resolved → open) or otherwise break the append-only
// contract. It signals a programming error, not a user mistake.
var ErrInvariantViolation = errors.New("ledger invariant violation")

type ContradictionType string

const (
	// ContradictionNone means the two values are equivalent; the new
	// assertion confirms the old fact.
	ContradictionNone ContradictionType = "none"
	// ContradictionRefinement is natural variation within tolerance
	// (e.g. age rounding). Both facts are kept, no ledger entry.
	ContradictionRefinement ContradictionType = "refinement"
	// ContradictionRevision is an explicit user correction ("actually X,
	// not Y"). Opens a ledger entry.
	ContradictionRevision ContradictionType = "revision"
	// ContradictionTemporal is a natural progression in a known hierarchy
	// (e.g. Engineer → Senior Engineer). Both facts are kept.
	ContradictionTemporal ContradictionType = "temporal"
	// ContradictionConflict is a hard disagreement with no objective
	// winner. Opens a ledger entry.
	ContradictionConflict ContradictionType = "conflict"
)

func ValidContradictionType(t string) bool {
	switch ContradictionType(t) {
	case ContradictionRefinement, ContradictionRevision, ContradictionTemporal, ContradictionConflict:
		return true
	}
	return false
}

// OpensLedgerEntry reports whether a classification of this type creates a
// ledger entry. Refinement and temporal updates preserve both facts
// without contest, so only revisions and conflicts are ledgered.
func (t ContradictionType) OpensLedgerEntry() bool {
	return t == ContradictionRevision || t == ContradictionConflict
}

type LedgerStatus string

const (
	StatusOpen     LedgerStatus = "open"
	StatusResolved LedgerStatus = "resolved"
	StatusDeferred LedgerStatus = "deferred"
)

func ValidLedgerStatus(s LedgerStatus) bool {
	switch s {
	case StatusOpen, StatusResolved, StatusDeferred:
		return true
	}
	return false
}

// CanTransition reports whether a ledger entry may move from one status to
// another. Entries only advance: open → resolved, open → deferred,
// deferred → resolved. Everything else is a violation.
func CanTransition(from, to LedgerStatus) bool {
	switch from {
	case StatusOpen:
		return to == StatusResolved || to == StatusDeferred
	case StatusDeferred:
		return to == StatusResolved
	}
	return false
}

type ResolutionMethod string

const (
	ResolutionPreserve   ResolutionMethod = "preserve"
	ResolutionOverride   ResolutionMethod = "override"
	ResolutionAskUser    ResolutionMethod = "ask_user"
	ResolutionDisclosure ResolutionMethod = "mandatory_disclosure"
)

func ValidResolutionMethod(m string) bool {
	switch ResolutionMethod(m) {
	case ResolutionPreserve, ResolutionOverride, ResolutionAskUser, ResolutionDisclosure:
		return true
	}
	return false
}

// ContradictionEntry is one row of the append-only contradiction ledger.
// Entries are never deleted. Status, ResolutionMethod, ResolvedAt and
// Disclosed are the only mutable fields.
type ContradictionEntry struct {
	ID                uuid.UUID         `json:"id"`
	OldFactID         uuid.UUID         `json:"old_fact_id"`
	NewFactID         uuid.UUID         `json:"new_fact_id"`
	ThreadID          uuid.UUID         `json:"thread_id"`
	Slot              string            `json:"slot"`
	ContradictionType ContradictionType `json:"contradiction_type"`
	DriftScore        float64           `json:"drift_score"`
	Status            LedgerStatus      `json:"status"`
	ResolutionMethod  *ResolutionMethod `json:"resolution_method,omitempty"`
	Disclosed         bool              `json:"disclosed"`
	CreatedAt         time.Time         `json:"created_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
}

// References reports whether the entry involves the given fact.
func (e *ContradictionEntry) References(factID uuid.UUID) bool {
	return e.OldFactID == factID || e.NewFactID == factID
}
