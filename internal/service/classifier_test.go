package service

import (
	"context"
	"testing"

	"github.com/blockhead22/crt/internal/domain"
	"go.uber.org/zap"
)

func newTestClassifier() *Classifier {
	// No embedding client: lexical paths only, fully deterministic.
	return NewClassifier(nil, nil, nil, zap.NewNop())
}

func userFact(slot, value string) *domain.Fact {
	return &domain.Fact{Slot: slot, Value: value, Trust: 0.9, Source: domain.SourceUser}
}

func TestClassifyDirectCorrection(t *testing.T) {
	c := newTestClassifier()

	old := userFact("employer", "Microsoft")
	got := c.Classify(context.Background(), old, "Amazon", "Actually, I work at Amazon, not Microsoft")

	if got.Type != domain.ContradictionRevision {
		t.Fatalf("type = %s, want revision", got.Type)
	}
	if got.Drift != DirectCorrectionDrift {
		t.Errorf("drift = %f, want %f", got.Drift, DirectCorrectionDrift)
	}
	if got.Signal.Kind != domain.SignalDirect {
		t.Errorf("signal kind = %s, want direct", got.Signal.Kind)
	}
}

func TestClassifyCorrectionForOtherSlotDoesNotApply(t *testing.T) {
	c := newTestClassifier()

	// The correction names language values; the stored pair is employers.
	// A signal grounded on only one side (or neither) must not turn this
	// into a revision.
	old := userFact("employer", "Microsoft")
	got := c.Classify(context.Background(), old, "Amazon", "Actually, it's Python, not Java")

	if got.Type == domain.ContradictionRevision {
		t.Fatalf("cross-slot correction misapplied: type = %s", got.Type)
	}
	if got.Type != domain.ContradictionConflict {
		t.Errorf("type = %s, want conflict", got.Type)
	}
}

func TestClassifyHedgedCorrection(t *testing.T) {
	c := newTestClassifier()

	old := userFact("years_experience", "10")
	got := c.Classify(context.Background(), old, "12", "I said 10 years but it's closer to 12")

	if got.Type != domain.ContradictionRevision {
		t.Fatalf("type = %s, want revision", got.Type)
	}
	if got.Drift != HedgedCorrectionDrift {
		t.Errorf("drift = %f, want %f", got.Drift, HedgedCorrectionDrift)
	}
	if got.Signal.Kind != domain.SignalHedged {
		t.Errorf("signal kind = %s, want hedged", got.Signal.Kind)
	}
}

func TestClassifyNumericDrift(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		oldVal   string
		newVal   string
		wantType domain.ContradictionType
	}{
		{"small drift refines", "10", "11", domain.ContradictionRefinement},
		{"boundary drift refines", "10", "12", domain.ContradictionRefinement},
		{"large drift conflicts", "10", "15", domain.ContradictionConflict},
		{"age jump conflicts", "34", "45", domain.ContradictionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := userFact("age", tt.oldVal)
			got := c.Classify(context.Background(), old, tt.newVal, "")
			if got.Type != tt.wantType {
				t.Errorf("Classify(%s -> %s) = %s, want %s", tt.oldVal, tt.newVal, got.Type, tt.wantType)
			}
		})
	}
}

func TestClassifyEquivalentValues(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		oldVal string
		newVal string
	}{
		{"Google", "google"},
		{"Seattle", "Seattle, WA"},
		{"  senior engineer ", "Senior   Engineer"},
	}

	for _, tt := range tests {
		old := userFact("any", tt.oldVal)
		got := c.Classify(context.Background(), old, tt.newVal, "")
		if got.Type != domain.ContradictionNone {
			t.Errorf("Classify(%q, %q) = %s, want none", tt.oldVal, tt.newVal, got.Type)
		}
	}
}

func TestClassifyContainmentIsTemporal(t *testing.T) {
	c := newTestClassifier()

	old := userFact("role", "engineer")
	got := c.Classify(context.Background(), old, "senior engineer", "")

	if got.Type != domain.ContradictionTemporal {
		t.Fatalf("type = %s, want temporal", got.Type)
	}
	if got.Contradicts() {
		t.Error("temporal progression must not open a ledger entry")
	}
}

func TestClassifyDenialIsConflict(t *testing.T) {
	c := newTestClassifier()

	old := userFact("dietary_preference", "vegetarian")
	got := c.Classify(context.Background(), old, "omnivore", "I never said I was vegetarian")

	if got.Type != domain.ContradictionConflict {
		t.Fatalf("type = %s, want conflict", got.Type)
	}
	if got.Drift != 1 {
		t.Errorf("drift = %f, want 1", got.Drift)
	}
}

func TestClassifyDistinctValuesConflict(t *testing.T) {
	c := newTestClassifier()

	old := userFact("employer", "Google")
	got := c.Classify(context.Background(), old, "Meta", "I work at Meta")

	if got.Type != domain.ContradictionConflict {
		t.Fatalf("type = %s, want conflict", got.Type)
	}
	if !got.Contradicts() {
		t.Error("conflict must open a ledger entry")
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := newTestClassifier()

	old := userFact("employer", "Microsoft")
	first := c.Classify(context.Background(), old, "Amazon", "Actually, I work at Amazon, not Microsoft")
	second := c.Classify(context.Background(), old, "Amazon", "Actually, I work at Amazon, not Microsoft")

	if first != second {
		t.Errorf("classification not stable: %+v vs %+v", first, second)
	}
}

func TestPatternDetector(t *testing.T) {
	d := NewPatternDetector()

	tests := []struct {
		text   string
		kind   domain.CorrectionKind
		oldVal string
		newVal string
	}{
		{"Actually, I work at Amazon, not Microsoft", domain.SignalDirect, "Microsoft", "Amazon"},
		{"I'm actually 34, not 32", domain.SignalDirect, "32", "34"},
		{"It's Python, not Java", domain.SignalDirect, "Java", "Python"},
		{"I said 10 years but it's closer to 12", domain.SignalHedged, "10 years", "12"},
		{"10 was wrong, it's more like 12", domain.SignalHedged, "10", "12"},
		{"I work at Amazon", domain.SignalNone, "", ""},
		{"", domain.SignalNone, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := d.Detect(tt.text)
			if got.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.kind)
			}
			if tt.kind == domain.SignalNone {
				return
			}
			if got.OldValue != tt.oldVal || got.NewValue != tt.newVal {
				t.Errorf("extracted (%q, %q), want (%q, %q)", got.OldValue, got.NewValue, tt.oldVal, tt.newVal)
			}
		})
	}
}
