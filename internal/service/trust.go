package service

import (
	"context"

	"github.com/blockhead22/crt/internal/domain"
	"go.uber.org/zap"
)

const (
	// ConfirmationBoost is added when an equivalent value re-confirms a
	// stored fact.
	ConfirmationBoost float32 = 0.15
	// ContradictionDecayFactor multiplies the older fact's trust when a
	// contradiction is recorded. Substantial decay, not deletion.
	ContradictionDecayFactor float32 = 0.4
	// CorrectionTrust is the trust given to a new fact carried by explicit
	// correction language, regardless of extractor confidence.
	CorrectionTrust float32 = 0.95
)

// TrustService owns every trust mutation. The arithmetic is pure and
// clamped to [0,1]; persistence goes through FactStore.UpdateTrust, which
// writes the fact projection and the audit event together.
type TrustService struct {
	facts  domain.FactStore
	logger *zap.Logger
}

func NewTrustService(facts domain.FactStore, logger *zap.Logger) *TrustService {
	return &TrustService{facts: facts, logger: logger}
}

// InitialTrust computes the trust for a freshly created fact. Direct
// correction language overrides the extractor's base confidence.
func InitialTrust(confidence float32, signal domain.CorrectionSignal) float32 {
	if signal.Kind == domain.SignalDirect {
		return CorrectionTrust
	}
	if confidence > 0 {
		return domain.ClampTrust(confidence)
	}
	return domain.DefaultTrust
}

// DecayedTrust is the older fact's trust after a contradiction.
func DecayedTrust(trust float32) float32 {
	return domain.ClampTrust(trust * ContradictionDecayFactor)
}

// ConfirmedTrust is a fact's trust after re-confirmation.
func ConfirmedTrust(trust float32) float32 {
	return domain.ClampTrust(trust + ConfirmationBoost)
}

// Confirm boosts a fact's trust after an equivalent assertion.
func (s *TrustService) Confirm(ctx context.Context, fact *domain.Fact) error {
	newTrust := ConfirmedTrust(fact.Trust)
	s.logger.Debug("confirming fact",
		zap.String("fact_id", fact.ID.String()),
		zap.Float32("old_trust", fact.Trust),
		zap.Float32("new_trust", newTrust))

	if err := s.facts.UpdateTrust(ctx, fact.ID, newTrust, domain.TrustReasonConfirmed); err != nil {
		return err
	}
	fact.Trust = newTrust
	return nil
}

// DecayPlan builds the trust decay applied atomically with a ledger
// append.
func DecayPlan(fact *domain.Fact) *domain.TrustDecay {
	return &domain.TrustDecay{
		FactID:   fact.ID,
		OldTrust: fact.Trust,
		NewTrust: DecayedTrust(fact.Trust),
		Reason:   domain.TrustReasonContradicted,
	}
}

