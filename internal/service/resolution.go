package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/blockhead22/crt/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")
	ErrFactNotFound        = errors.New("fact not found")
	// ErrValidation marks a malformed resolution request. The entry stays
	// OPEN; the caller can retry with clarification.
	ErrValidation = errors.New("invalid resolution request")
)

// ResolveRequest is one attempt to settle a contradiction.
type ResolveRequest struct {
	LedgerID     uuid.UUID
	Method       domain.ResolutionMethod
	ChosenFactID *uuid.UUID
	AnswerText   string
}

// ResolveOutcome reports what happened to the entry.
type ResolveOutcome struct {
	Status string                  `json:"status"` // resolved | deferred | rejected
	Reason string                  `json:"reason,omitempty"`
	Method domain.ResolutionMethod `json:"method,omitempty"`
}

// ResolutionService drives the per-entry state machine:
// OPEN → RESOLVED{preserve, override, ask_user, mandatory_disclosure}
// or OPEN → DEFERRED → RESOLVED. Every resolution is validated against the
// entry's actual fact pair before anything is written.
type ResolutionService struct {
	ledger domain.LedgerStore
	facts  domain.FactStore
	logger *zap.Logger
}

func NewResolutionService(ledger domain.LedgerStore, facts domain.FactStore, logger *zap.Logger) *ResolutionService {
	return &ResolutionService{ledger: ledger, facts: facts, logger: logger}
}

func (s *ResolutionService) Resolve(ctx context.Context, req ResolveRequest) (*ResolveOutcome, error) {
	entry, err := s.ledger.GetByID(ctx, req.LedgerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLedgerEntryNotFound
		}
		return nil, err
	}

	if entry.Status == domain.StatusResolved {
		return nil, fmt.Errorf("%w: entry already resolved", ErrValidation)
	}

	switch req.Method {
	case domain.ResolutionAskUser:
		return s.resolveFromAnswer(ctx, entry, req)
	case domain.ResolutionPreserve, domain.ResolutionDisclosure:
		if err := s.ledger.Resolve(ctx, entry.ID, req.Method); err != nil {
			return nil, err
		}
		return &ResolveOutcome{Status: "resolved", Method: req.Method}, nil
	case domain.ResolutionOverride:
		return s.resolveOverride(ctx, entry, req.ChosenFactID)
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrValidation, req.Method)
	}
}

// resolveOverride keeps the chosen fact and deprecates the other side.
func (s *ResolutionService) resolveOverride(ctx context.Context, entry *domain.ContradictionEntry, chosen *uuid.UUID) (*ResolveOutcome, error) {
	if chosen == nil {
		return nil, fmt.Errorf("%w: override requires chosen_fact_id", ErrValidation)
	}
	if !entry.References(*chosen) {
		return nil, fmt.Errorf("%w: chosen_fact_id does not belong to this entry", ErrValidation)
	}

	loser := entry.OldFactID
	if *chosen == entry.OldFactID {
		loser = entry.NewFactID
	}

	if err := s.ledger.ResolveOverride(ctx, entry.ID, loser); err != nil {
		return nil, err
	}
	s.logger.Info("contradiction overridden",
		zap.String("ledger_id", entry.ID.String()),
		zap.String("winner", chosen.String()),
		zap.String("deprecated", loser.String()))
	return &ResolveOutcome{Status: "resolved", Method: domain.ResolutionOverride}, nil
}

// resolveFromAnswer parses the user's free-text answer through the intent
// decision table and grounds the choice against the entry's fact pair. An
// intent that names one fact must agree with chosen_fact_id when the
// caller supplied one; disagreement is a rejected resolution, never a
// coerced one.
func (s *ResolutionService) resolveFromAnswer(ctx context.Context, entry *domain.ContradictionEntry, req ResolveRequest) (*ResolveOutcome, error) {
	oldFact, err := s.facts.GetByID(ctx, entry.OldFactID)
	if err != nil {
		return nil, fmt.Errorf("load old fact: %w", err)
	}
	newFact, err := s.facts.GetByID(ctx, entry.NewFactID)
	if err != nil {
		return nil, fmt.Errorf("load new fact: %w", err)
	}

	intent := domain.ParseResolutionIntent(req.AnswerText, oldFact.Value, newFact.Value)

	switch intent {
	case domain.IntentChooseOld, domain.IntentChooseNew:
		wanted := entry.OldFactID
		if intent == domain.IntentChooseNew {
			wanted = entry.NewFactID
		}
		// Grounding check: a parsed choice and an explicit id must agree.
		if req.ChosenFactID != nil && *req.ChosenFactID != wanted {
			return nil, fmt.Errorf("%w: parsed intent %s contradicts chosen_fact_id", ErrValidation, intent)
		}
		return s.resolveOverride(ctx, entry, &wanted)

	case domain.IntentKeepBoth:
		if err := s.ledger.Resolve(ctx, entry.ID, domain.ResolutionPreserve); err != nil {
			return nil, err
		}
		return &ResolveOutcome{Status: "resolved", Method: domain.ResolutionPreserve}, nil

	case domain.IntentDecline:
		if err := s.ledger.Defer(ctx, entry.ID); err != nil {
			return nil, err
		}
		return &ResolveOutcome{Status: "deferred"}, nil

	default:
		// Unclear answers trigger a re-prompt, never a guess.
		return &ResolveOutcome{
			Status: "rejected",
			Reason: fmt.Sprintf("could not tell whether you meant %q or %q — please name one", oldFact.Value, newFact.Value),
		}, nil
	}
}

// AutoResolve applies the assertive default to an OPEN entry: the fact
// with higher trust wins, recency breaks ties. Revisions override, hard
// conflicts preserve both. The outcome still gets disclosed at retrieval.
func (s *ResolutionService) AutoResolve(ctx context.Context, entry *domain.ContradictionEntry) (*ResolveOutcome, error) {
	oldFact, err := s.facts.GetByID(ctx, entry.OldFactID)
	if err != nil {
		return nil, fmt.Errorf("load old fact: %w", err)
	}
	newFact, err := s.facts.GetByID(ctx, entry.NewFactID)
	if err != nil {
		return nil, fmt.Errorf("load new fact: %w", err)
	}

	if entry.ContradictionType == domain.ContradictionConflict {
		if err := s.ledger.Resolve(ctx, entry.ID, domain.ResolutionPreserve); err != nil {
			return nil, err
		}
		return &ResolveOutcome{Status: "resolved", Method: domain.ResolutionPreserve}, nil
	}

	winner := pickWinner(oldFact, newFact)
	return s.resolveOverride(ctx, entry, &winner.ID)
}

func pickWinner(oldFact, newFact *domain.Fact) *domain.Fact {
	if newFact.Trust > oldFact.Trust {
		return newFact
	}
	if oldFact.Trust > newFact.Trust {
		return oldFact
	}
	if newFact.CreatedAt.After(oldFact.CreatedAt) {
		return newFact
	}
	return oldFact
}
