package service

import (
	"context"
	"errors"
	"time"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrIngestTextEmpty     = errors.New("text is required")
	ErrIngestThreadMissing = errors.New("thread_id is required")
)

// DefaultExtractTimeout bounds the external fact extractor.
const DefaultExtractTimeout = 5 * time.Second

// IngestOutcome says what happened to one extracted tuple.
type IngestOutcome string

const (
	OutcomeCreated   IngestOutcome = "created"
	OutcomeConfirmed IngestOutcome = "confirmed"
	OutcomeRefined   IngestOutcome = "refined"
	OutcomeTemporal  IngestOutcome = "temporal"
	OutcomeRevised   IngestOutcome = "revised"
	OutcomeConflict  IngestOutcome = "conflict"
)

type IngestResult struct {
	Outcome  IngestOutcome `json:"outcome"`
	Fact     *domain.Fact  `json:"fact"`
	LedgerID *uuid.UUID    `json:"ledger_id,omitempty"`
}

// IngestService runs the pipeline: extract tuples from raw text, classify
// each against the latest committed fact for its slot, then create,
// confirm, or open a ledger entry as classified. Work within a thread is
// strictly sequential so a rapid burst of corrections always classifies
// against what the previous step committed.
type IngestService struct {
	facts      domain.FactStore
	ledger     domain.LedgerStore
	trust      *TrustService
	classifier *Classifier
	extractor  domain.FactExtractor
	emb        domain.EmbeddingClient
	logger     *zap.Logger

	extractTimeout time.Duration
}

func NewIngestService(facts domain.FactStore, ledger domain.LedgerStore, trust *TrustService, classifier *Classifier, extractor domain.FactExtractor, emb domain.EmbeddingClient, logger *zap.Logger) *IngestService {
	return &IngestService{
		facts:          facts,
		ledger:         ledger,
		trust:          trust,
		classifier:     classifier,
		extractor:      extractor,
		emb:            emb,
		logger:         logger,
		extractTimeout: DefaultExtractTimeout,
	}
}

func (s *IngestService) SetExtractTimeout(d time.Duration) {
	s.extractTimeout = d
}

// Ingest extracts facts from text and feeds each through the pipeline.
// Extractor failure or timeout skips fact creation entirely — the system
// never guesses at what the user asserted.
func (s *IngestService) Ingest(ctx context.Context, threadID uuid.UUID, text string) ([]IngestResult, error) {
	if text == "" {
		return nil, ErrIngestTextEmpty
	}
	if threadID == uuid.Nil {
		return nil, ErrIngestThreadMissing
	}

	if s.extractor == nil {
		s.logger.Warn("no extractor configured, skipping ingest",
			zap.String("thread_id", threadID.String()))
		return []IngestResult{}, nil
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	tuples, err := s.extractor.Extract(extractCtx, text)
	if err != nil {
		s.logger.Warn("fact extraction failed, skipping",
			zap.String("thread_id", threadID.String()),
			zap.Error(err))
		return []IngestResult{}, nil
	}

	results := make([]IngestResult, 0, len(tuples))
	for _, t := range tuples {
		res, err := s.ProcessAssertion(ctx, threadID, t, text)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// ProcessAssertion handles one (slot, value, confidence) tuple. Exposed
// separately so callers with pre-extracted tuples skip the extractor.
func (s *IngestService) ProcessAssertion(ctx context.Context, threadID uuid.UUID, t domain.ExtractedFact, surroundingText string) (*IngestResult, error) {
	prior, err := s.latestUserFact(ctx, threadID, t.Slot)
	if err != nil {
		return nil, err
	}

	if prior == nil {
		f, err := s.createFact(ctx, threadID, t, domain.NoSignal())
		if err != nil {
			return nil, err
		}
		return &IngestResult{Outcome: OutcomeCreated, Fact: f}, nil
	}

	cls := s.classifier.Classify(ctx, prior, t.Value, surroundingText)

	switch cls.Type {
	case domain.ContradictionNone:
		if err := s.trust.Confirm(ctx, prior); err != nil {
			return nil, err
		}
		return &IngestResult{Outcome: OutcomeConfirmed, Fact: prior}, nil

	case domain.ContradictionRefinement, domain.ContradictionTemporal:
		f, err := s.createFact(ctx, threadID, t, domain.NoSignal())
		if err != nil {
			return nil, err
		}
		outcome := OutcomeRefined
		if cls.Type == domain.ContradictionTemporal {
			outcome = OutcomeTemporal
		}
		return &IngestResult{Outcome: outcome, Fact: f}, nil

	default: // revision or conflict: new fact + ledger entry + decay, together
		f, err := s.createFact(ctx, threadID, t, cls.Signal)
		if err != nil {
			return nil, err
		}

		entry := &domain.ContradictionEntry{
			OldFactID:         prior.ID,
			NewFactID:         f.ID,
			ThreadID:          threadID,
			Slot:              t.Slot,
			ContradictionType: cls.Type,
			DriftScore:        cls.Drift,
		}
		if err := s.ledger.Append(ctx, entry, DecayPlan(prior)); err != nil {
			return nil, err
		}

		s.logger.Info("contradiction recorded",
			zap.String("thread_id", threadID.String()),
			zap.String("slot", t.Slot),
			zap.String("type", string(cls.Type)),
			zap.Float64("drift", cls.Drift),
			zap.String("ledger_id", entry.ID.String()))

		outcome := OutcomeConflict
		if cls.Type == domain.ContradictionRevision {
			outcome = OutcomeRevised
		}
		return &IngestResult{Outcome: outcome, Fact: f, LedgerID: &entry.ID}, nil
	}
}

// latestUserFact returns the most recently committed non-deprecated
// user-sourced fact for the slot, or nil. Only user facts participate in
// contradiction detection against other user facts.
func (s *IngestService) latestUserFact(ctx context.Context, threadID uuid.UUID, slot string) (*domain.Fact, error) {
	facts, err := s.facts.GetBySlot(ctx, threadID, slot, domain.FactQueryOpts{Limit: 10})
	if err != nil {
		return nil, err
	}
	for i := range facts {
		if facts[i].Source == domain.SourceUser {
			return &facts[i], nil
		}
	}
	return nil, nil
}

func (s *IngestService) createFact(ctx context.Context, threadID uuid.UUID, t domain.ExtractedFact, signal domain.CorrectionSignal) (*domain.Fact, error) {
	f := &domain.Fact{
		ThreadID:   threadID,
		Slot:       t.Slot,
		Value:      t.Value,
		Confidence: t.Confidence,
		Trust:      InitialTrust(t.Confidence, signal),
		Source:     domain.SourceUser,
	}

	if s.emb != nil {
		vec, err := s.emb.Embed(ctx, t.Value)
		if err != nil {
			// Storage still works without an embedding; retrieval just
			// won't surface this fact by similarity.
			s.logger.Warn("embedding generation failed", zap.Error(err))
		} else {
			f.Embedding = vec
		}
	}

	if err := s.facts.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}
