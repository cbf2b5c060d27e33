package service

import (
	"context"
	"fmt"
	"time"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultSearchTimeout bounds the similarity-search collaborator.
	DefaultSearchTimeout = 2 * time.Second
	// DefaultAnswerTopK is the candidate count fetched per query.
	DefaultAnswerTopK = 10
)

// GateResult is the disclosure gate's verdict for one query.
type GateResult struct {
	Facts                   []domain.AnnotatedFact `json:"facts"`
	GatesPassed             bool                   `json:"gates_passed"`
	UnresolvedHardConflicts int                    `json:"unresolved_hard_conflicts"`
	ClarificationQuestion   string                 `json:"clarification_question,omitempty"`
}

// GateService enforces the reintroduction invariant: no fact that belongs
// to an open conflict or revision entry leaves this component without a
// caveat, and a contested slot blocks the confident answer entirely.
type GateService struct {
	facts    domain.FactStore
	ledger   domain.LedgerStore
	searcher domain.SimilaritySearcher
	logger   *zap.Logger

	searchTimeout time.Duration
}

func NewGateService(facts domain.FactStore, ledger domain.LedgerStore, searcher domain.SimilaritySearcher, logger *zap.Logger) *GateService {
	return &GateService{
		facts:         facts,
		ledger:        ledger,
		searcher:      searcher,
		logger:        logger,
		searchTimeout: DefaultSearchTimeout,
	}
}

func (s *GateService) SetSearchTimeout(d time.Duration) {
	s.searchTimeout = d
}

// Answer retrieves candidates for the query and passes them through the
// gate. The similarity search is the one slow collaborator here; on
// timeout or failure the gate fails safe — clarification, not stale data.
func (s *GateService) Answer(ctx context.Context, threadID uuid.UUID, query string, slot string, topK int) (*GateResult, error) {
	if topK <= 0 {
		topK = DefaultAnswerTopK
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	candidates, err := s.searcher.Search(searchCtx, threadID, query, topK)
	if err != nil {
		s.logger.Warn("similarity search unavailable, failing safe",
			zap.String("thread_id", threadID.String()),
			zap.Error(err))
		return &GateResult{
			Facts:                 []domain.AnnotatedFact{},
			GatesPassed:           false,
			ClarificationQuestion: "I couldn't check my memory just now — could you restate or confirm the detail you're asking about?",
		}, nil
	}

	return s.Annotate(ctx, candidates, slot)
}

// Annotate applies the gate to an already-retrieved candidate list. slot
// names the slot the query concerns; contested entries in that slot fail
// the gate. Facts in open entries for other slots still get flagged.
func (s *GateService) Annotate(ctx context.Context, candidates []domain.FactWithScore, slot string) (*GateResult, error) {
	result := &GateResult{GatesPassed: true}
	if len(candidates) == 0 {
		result.Facts = []domain.AnnotatedFact{}
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	open, err := s.ledger.ListOpenByFactIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list open entries: %w", err)
	}
	pending, err := s.ledger.ListRecentlyResolvedByFactIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list undisclosed resolutions: %w", err)
	}

	var blocking *domain.ContradictionEntry
	for _, c := range candidates {
		af := domain.AnnotatedFact{FactWithScore: c}

		for i := range open {
			e := &open[i]
			if !e.References(c.ID) {
				continue
			}
			af.ReintroducedClaim = true
			af.Caveat = s.openCaveat(ctx, e, c.ID)
			if e.Slot == slot {
				result.UnresolvedHardConflicts++
				if blocking == nil {
					blocking = e
				}
			}
		}

		for i := range pending {
			e := &pending[i]
			if !e.References(c.ID) {
				continue
			}
			caveat, marked := s.resolvedCaveat(ctx, e, c.ID)
			if caveat != "" {
				af.ReintroducedClaim = true
				if af.Caveat == "" {
					af.Caveat = caveat
				}
			}
			if marked {
				if err := s.ledger.MarkDisclosed(ctx, e.ID); err != nil {
					s.logger.Warn("failed to mark disclosure", zap.String("ledger_id", e.ID.String()), zap.Error(err))
				}
			}
		}

		result.Facts = append(result.Facts, af)
	}

	if result.UnresolvedHardConflicts > 0 {
		result.GatesPassed = false
		result.ClarificationQuestion = s.clarification(ctx, blocking)
	}

	return result, nil
}

// openCaveat builds the disclosure text for a fact sitting in an OPEN
// entry, naming the value it conflicts with.
func (s *GateService) openCaveat(ctx context.Context, e *domain.ContradictionEntry, factID uuid.UUID) string {
	otherID := e.OldFactID
	if factID == e.OldFactID {
		otherID = e.NewFactID
	}
	other, err := s.facts.GetByID(ctx, otherID)
	if err != nil {
		s.logger.Warn("failed to load conflicting fact for caveat", zap.Error(err))
		return fmt.Sprintf("contested %s — an unresolved %s is on record", e.Slot, e.ContradictionType)
	}
	return fmt.Sprintf("contested — you also said %q for %s", other.Value, e.Slot)
}

// resolvedCaveat builds the one-time "(changed from X)" disclosure after
// an OVERRIDE, or the standing disclosure for PRESERVE and
// mandatory_disclosure resolutions. The bool reports whether the entry
// should be marked disclosed (standing disclosures never are; they caveat
// every retrieval until the user disambiguates).
func (s *GateService) resolvedCaveat(ctx context.Context, e *domain.ContradictionEntry, factID uuid.UUID) (string, bool) {
	if e.ResolutionMethod == nil {
		return "", false
	}
	switch *e.ResolutionMethod {
	case domain.ResolutionOverride:
		// Only the surviving fact carries the disclosure.
		loser := e.OldFactID
		winner := e.NewFactID
		if factID == e.OldFactID {
			loser = e.NewFactID
			winner = e.OldFactID
		}
		if factID != winner {
			return "", false
		}
		old, err := s.facts.GetByID(ctx, loser)
		if err != nil {
			s.logger.Warn("failed to load superseded fact for caveat", zap.Error(err))
			return fmt.Sprintf("changed from an earlier %s value", e.Slot), true
		}
		return fmt.Sprintf("changed from %q", old.Value), true
	case domain.ResolutionPreserve:
		// Both facts stay live. Each keeps naming the other until the
		// user picks one.
		otherID := e.OldFactID
		if factID == e.OldFactID {
			otherID = e.NewFactID
		}
		other, err := s.facts.GetByID(ctx, otherID)
		if err != nil {
			s.logger.Warn("failed to load coexisting fact for caveat", zap.Error(err))
			return fmt.Sprintf("kept alongside another %s value", e.Slot), false
		}
		return fmt.Sprintf("kept alongside %q for %s", other.Value, e.Slot), false
	case domain.ResolutionDisclosure:
		return fmt.Sprintf("disputed %s — multiple values remain on record", e.Slot), false
	default:
		return "", false
	}
}

// clarification derives the question asked instead of a confident answer.
func (s *GateService) clarification(ctx context.Context, e *domain.ContradictionEntry) string {
	if e == nil {
		return "I have conflicting information on record — which value is current?"
	}
	oldFact, errOld := s.facts.GetByID(ctx, e.OldFactID)
	newFact, errNew := s.facts.GetByID(ctx, e.NewFactID)
	if errOld != nil || errNew != nil {
		return fmt.Sprintf("I have conflicting %s values on record — which is current?", e.Slot)
	}
	if e.ContradictionType == domain.ContradictionRevision {
		return fmt.Sprintf("You corrected %s from %q to %q — should I drop the old value?", e.Slot, oldFact.Value, newFact.Value)
	}
	return fmt.Sprintf("You've told me both %q and %q for %s — which is current?", oldFact.Value, newFact.Value, e.Slot)
}
