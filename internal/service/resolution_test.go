package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type resolutionFixture struct {
	svc     *ResolutionService
	facts   *mockFactStore
	ledger  *mockLedgerStore
	entry   *domain.ContradictionEntry
	oldFact *domain.Fact
	newFact *domain.Fact
}

func newResolutionFixture(t *testing.T, typ domain.ContradictionType) *resolutionFixture {
	t.Helper()

	facts := newMockFactStore()
	ledger := newMockLedgerStore(facts)
	threadID := uuid.New()

	oldFact := &domain.Fact{ThreadID: threadID, Slot: "employer", Value: "Google", Trust: 0.9, Source: domain.SourceUser}
	_ = facts.Create(context.Background(), oldFact)
	newFact := &domain.Fact{ThreadID: threadID, Slot: "employer", Value: "Meta", Trust: 0.95, Source: domain.SourceUser}
	_ = facts.Create(context.Background(), newFact)

	entry := &domain.ContradictionEntry{
		OldFactID:         oldFact.ID,
		NewFactID:         newFact.ID,
		ThreadID:          threadID,
		Slot:              "employer",
		ContradictionType: typ,
		DriftScore:        1,
	}
	if err := ledger.Append(context.Background(), entry, nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	return &resolutionFixture{
		svc:     NewResolutionService(ledger, facts, zap.NewNop()),
		facts:   facts,
		ledger:  ledger,
		entry:   entry,
		oldFact: oldFact,
		newFact: newFact,
	}
}

func TestResolveFromAnswerNamingValue(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionConflict)

	outcome, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID:   fx.entry.ID,
		Method:     domain.ResolutionAskUser,
		AnswerText: "Meta is right",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Status != "resolved" || outcome.Method != domain.ResolutionOverride {
		t.Errorf("outcome = %+v, want resolved/override", outcome)
	}
	if fx.entry.Status != domain.StatusResolved {
		t.Errorf("entry status = %s, want resolved", fx.entry.Status)
	}
	if !fx.oldFact.Deprecated {
		t.Error("losing fact not deprecated")
	}
	if fx.newFact.Deprecated {
		t.Error("winning fact must survive")
	}
}

func TestResolveGroundingMismatchRejected(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionConflict)

	// The answer names the new value but chosen_fact_id points at the old
	// fact. The service must refuse rather than pick a side.
	outcome, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID:     fx.entry.ID,
		Method:       domain.ResolutionAskUser,
		AnswerText:   "Meta",
		ChosenFactID: &fx.oldFact.ID,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if outcome != nil {
		t.Errorf("outcome = %+v, want nil", outcome)
	}
	if fx.entry.Status != domain.StatusOpen {
		t.Errorf("entry status = %s, must stay open after rejection", fx.entry.Status)
	}
	if fx.oldFact.Deprecated || fx.newFact.Deprecated {
		t.Error("no fact may be deprecated on a rejected resolution")
	}
}

func TestResolveUnclearAnswerReprompts(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionConflict)

	outcome, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID:   fx.entry.ID,
		Method:     domain.ResolutionAskUser,
		AnswerText: "hmm, not sure",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "rejected" {
		t.Errorf("status = %s, want rejected", outcome.Status)
	}
	if outcome.Reason == "" {
		t.Error("rejected outcome must carry a re-prompt reason")
	}
	if fx.entry.Status != domain.StatusOpen {
		t.Errorf("entry status = %s, must stay open", fx.entry.Status)
	}
}

func TestResolveDeclineDefers(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionConflict)

	outcome, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID:   fx.entry.ID,
		Method:     domain.ResolutionAskUser,
		AnswerText: "skip",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "deferred" {
		t.Errorf("status = %s, want deferred", outcome.Status)
	}
	if fx.entry.Status != domain.StatusDeferred {
		t.Errorf("entry status = %s, want deferred", fx.entry.Status)
	}

	// A deferred entry can still be resolved later.
	outcome, err = fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID:   fx.entry.ID,
		Method:     domain.ResolutionAskUser,
		AnswerText: "keep both",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "resolved" || outcome.Method != domain.ResolutionPreserve {
		t.Errorf("outcome = %+v, want resolved/preserve", outcome)
	}
}

func TestResolveAlreadyResolvedFails(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionConflict)

	if _, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID: fx.entry.ID,
		Method:   domain.ResolutionPreserve,
	}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	_, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID: fx.entry.ID,
		Method:   domain.ResolutionPreserve,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestResolveOverrideRequiresMemberOfPair(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionRevision)

	stranger := uuid.New()
	_, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID:     fx.entry.ID,
		Method:       domain.ResolutionOverride,
		ChosenFactID: &stranger,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	_, err = fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID: fx.entry.ID,
		Method:   domain.ResolutionOverride,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing chosen_fact_id: err = %v, want ErrValidation", err)
	}
}

func TestResolveUnknownEntry(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionConflict)

	_, err := fx.svc.Resolve(context.Background(), ResolveRequest{
		LedgerID: uuid.New(),
		Method:   domain.ResolutionPreserve,
	})
	if !errors.Is(err, ErrLedgerEntryNotFound) {
		t.Fatalf("err = %v, want ErrLedgerEntryNotFound", err)
	}
}

func TestAutoResolveRevisionOverridesHigherTrust(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionRevision)

	outcome, err := fx.svc.AutoResolve(context.Background(), fx.entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Method != domain.ResolutionOverride {
		t.Errorf("method = %s, want override", outcome.Method)
	}
	// newFact has higher trust (0.95 vs 0.9); old side loses.
	if !fx.oldFact.Deprecated {
		t.Error("lower-trust fact should be deprecated")
	}
}

func TestAutoResolveConflictPreservesBoth(t *testing.T) {
	fx := newResolutionFixture(t, domain.ContradictionConflict)

	outcome, err := fx.svc.AutoResolve(context.Background(), fx.entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Method != domain.ResolutionPreserve {
		t.Errorf("method = %s, want preserve", outcome.Method)
	}
	if fx.oldFact.Deprecated || fx.newFact.Deprecated {
		t.Error("hard conflicts must keep both facts")
	}
}

func TestPickWinnerRecencyTieBreak(t *testing.T) {
	older := &domain.Fact{ID: uuid.New(), Trust: 0.8, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &domain.Fact{ID: uuid.New(), Trust: 0.8, CreatedAt: time.Now()}

	if got := pickWinner(older, newer); got.ID != newer.ID {
		t.Error("equal trust should prefer the newer fact")
	}
	if got := pickWinner(newer, older); got.ID != newer.ID {
		t.Error("tie-break must not depend on argument order")
	}
}
