package service

import (
	"context"
	"testing"
	"time"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedStaleEntry(t *testing.T, facts *mockFactStore, ledger *mockLedgerStore, typ domain.ContradictionType) *domain.ContradictionEntry {
	t.Helper()

	threadID := uuid.New()
	oldFact := &domain.Fact{ThreadID: threadID, Slot: "employer", Value: "Google", Trust: 0.38, Source: domain.SourceUser}
	require.NoError(t, facts.Create(context.Background(), oldFact))
	newFact := &domain.Fact{ThreadID: threadID, Slot: "employer", Value: "Meta", Trust: 0.95, Source: domain.SourceUser}
	require.NoError(t, facts.Create(context.Background(), newFact))

	entry := &domain.ContradictionEntry{
		OldFactID:         oldFact.ID,
		NewFactID:         newFact.ID,
		ThreadID:          threadID,
		Slot:              "employer",
		ContradictionType: typ,
	}
	require.NoError(t, ledger.Append(context.Background(), entry, nil))
	// backdate past the staleness cutoff
	entry.CreatedAt = time.Now().Add(-2 * time.Hour)
	return entry
}

func TestReviewSweepResolvesStaleRevision(t *testing.T) {
	facts := newMockFactStore()
	ledger := newMockLedgerStore(facts)
	resolution := NewResolutionService(ledger, facts, zap.NewNop())

	entry := seedStaleEntry(t, facts, ledger, domain.ContradictionRevision)

	svc := NewReviewService(resolution, true, zap.NewNop())
	result := svc.RunReview(context.Background())

	assert.Equal(t, 1, result.EntriesExamined)
	assert.Equal(t, 1, result.EntriesResolved)
	assert.Equal(t, domain.StatusResolved, entry.Status)
	require.NotNil(t, entry.ResolutionMethod)
	assert.Equal(t, domain.ResolutionOverride, *entry.ResolutionMethod)
}

func TestReviewSweepDisabledLeavesEntriesOpen(t *testing.T) {
	facts := newMockFactStore()
	ledger := newMockLedgerStore(facts)
	resolution := NewResolutionService(ledger, facts, zap.NewNop())

	entry := seedStaleEntry(t, facts, ledger, domain.ContradictionConflict)

	svc := NewReviewService(resolution, false, zap.NewNop())
	result := svc.RunReview(context.Background())

	assert.Equal(t, 0, result.EntriesExamined)
	assert.Equal(t, domain.StatusOpen, entry.Status)
}

func TestReviewSweepIgnoresFreshEntries(t *testing.T) {
	facts := newMockFactStore()
	ledger := newMockLedgerStore(facts)
	resolution := NewResolutionService(ledger, facts, zap.NewNop())

	entry := seedStaleEntry(t, facts, ledger, domain.ContradictionConflict)
	entry.CreatedAt = time.Now()

	svc := NewReviewService(resolution, true, zap.NewNop())
	result := svc.RunReview(context.Background())

	assert.Equal(t, 0, result.EntriesExamined)
	assert.Equal(t, domain.StatusOpen, entry.Status)
}

func TestReviewWorkerStartStop(t *testing.T) {
	facts := newMockFactStore()
	ledger := newMockLedgerStore(facts)
	resolution := NewResolutionService(ledger, facts, zap.NewNop())

	svc := NewReviewService(resolution, true, zap.NewNop())
	svc.SetInterval(10 * time.Millisecond)

	svc.Start()
	time.Sleep(30 * time.Millisecond)
	svc.Stop() // must not hang or panic
}
