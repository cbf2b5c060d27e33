package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/blockhead22/crt/internal/domain"
	"go.uber.org/zap"
)

const (
	// NearIdentityThreshold is the semantic similarity above which two
	// values count as the same assertion ("Seattle" vs "Seattle, WA").
	NearIdentityThreshold = 0.92
	// NumericDriftThreshold separates natural variation from a real
	// numeric disagreement.
	NumericDriftThreshold = 0.20
	// DirectCorrectionDrift marks a fully confident correction.
	DirectCorrectionDrift = 1.0
	// HedgedCorrectionDrift marks a softer correction.
	HedgedCorrectionDrift = 0.85
)

// Classification is the classifier's verdict on an (old fact, new value)
// pair sharing a slot.
type Classification struct {
	Type   domain.ContradictionType
	Drift  float64
	Signal domain.CorrectionSignal
}

// Contradicts reports whether the verdict opens a ledger entry.
func (c Classification) Contradicts() bool {
	return c.Type.OpensLedgerEntry()
}

// Classifier decides whether a new assertion for a slot refines, revises,
// temporally updates, or conflicts with the stored fact. It is pure with
// respect to its inputs and never fails: any ambiguity lands on CONFLICT
// so the disclosure gate errs toward asking, not silence.
type Classifier struct {
	detector CorrectionDetector
	denial   DenialRetractionClassifier
	emb      domain.EmbeddingClient
	logger   *zap.Logger
}

func NewClassifier(detector CorrectionDetector, denial DenialRetractionClassifier, emb domain.EmbeddingClient, logger *zap.Logger) *Classifier {
	if detector == nil {
		detector = NewPatternDetector()
	}
	if denial == nil {
		denial = ConservativeDenialClassifier{}
	}
	return &Classifier{detector: detector, denial: denial, emb: emb, logger: logger}
}

// Classify runs the priority-ordered checks. surroundingText is the raw
// user utterance the new value was extracted from; it may be empty.
func (c *Classifier) Classify(ctx context.Context, old *domain.Fact, newValue, surroundingText string) Classification {
	oldNorm := domain.NormalizeValue(old.Value)
	newNorm := domain.NormalizeValue(newValue)

	// 1. Exact or semantic equivalence.
	if oldNorm == newNorm || commaQualified(oldNorm, newNorm) {
		return Classification{Type: domain.ContradictionNone, Drift: 0, Signal: domain.NoSignal()}
	}
	if sim, ok := c.semanticSimilarity(ctx, old.Value, newValue); ok && sim >= NearIdentityThreshold {
		return Classification{Type: domain.ContradictionNone, Drift: 0, Signal: domain.NoSignal()}
	}

	// Denials are conservative hard conflicts until a retraction policy
	// exists (see DenialRetractionClassifier).
	if t, denied := c.denial.Classify(surroundingText); denied {
		return Classification{Type: t, Drift: 1, Signal: domain.NoSignal()}
	}

	signal := c.detector.Detect(surroundingText)

	// 2. Explicit correction, grounded on both sides.
	if signal.Kind == domain.SignalDirect && signal.AppliesTo(old.Value, newValue) {
		return Classification{Type: domain.ContradictionRevision, Drift: DirectCorrectionDrift, Signal: signal}
	}

	// 3. Hedged correction, same grounding rule.
	if signal.Kind == domain.SignalHedged && signal.AppliesTo(old.Value, newValue) {
		return Classification{Type: domain.ContradictionRevision, Drift: HedgedCorrectionDrift, Signal: signal}
	}

	// 4. Numeric drift.
	if oldNum, newNum, ok := parseNumbers(oldNorm, newNorm); ok {
		drift := relativeDrift(oldNum, newNum)
		if drift > NumericDriftThreshold {
			t := domain.ContradictionConflict
			if signal.Present() {
				t = domain.ContradictionRevision
			}
			return Classification{Type: t, Drift: math.Min(drift, 1), Signal: signal}
		}
		return Classification{Type: domain.ContradictionRefinement, Drift: drift, Signal: domain.NoSignal()}
	}

	// 5. Containment: a specialization of the stored value is progression,
	// not contradiction ("Engineer" → "Senior Engineer").
	if wordContainment(oldNorm, newNorm) {
		return Classification{Type: domain.ContradictionTemporal, Drift: 0, Signal: domain.NoSignal()}
	}

	// 6. Lexically distinct values with no other explanation.
	drift := 1.0
	if sim, ok := c.semanticSimilarity(ctx, old.Value, newValue); ok {
		drift = 1 - sim
	} else {
		drift = 1 - jaccard(oldNorm, newNorm)
	}
	return Classification{Type: domain.ContradictionConflict, Drift: drift, Signal: signal}
}

// semanticSimilarity embeds both values and returns cosine similarity.
// Any embedding failure degrades to the lexical fallback.
func (c *Classifier) semanticSimilarity(ctx context.Context, a, b string) (float64, bool) {
	if c.emb == nil {
		return 0, false
	}
	va, err := c.emb.Embed(ctx, a)
	if err != nil {
		c.logger.Debug("similarity embed failed", zap.Error(err))
		return 0, false
	}
	vb, err := c.emb.Embed(ctx, b)
	if err != nil {
		c.logger.Debug("similarity embed failed", zap.Error(err))
		return 0, false
	}
	return Cosine(va, vb), true
}

// commaQualified treats "seattle" and "seattle, wa" as the same value: the
// longer one only adds a comma-separated qualifier.
func commaQualified(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return strings.HasPrefix(long, short+",")
}

func parseNumbers(a, b string) (float64, float64, bool) {
	av, errA := strconv.ParseFloat(a, 64)
	bv, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return av, bv, true
}

func relativeDrift(oldNum, newNum float64) float64 {
	if oldNum == 0 {
		if newNum == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(newNum-oldNum) / math.Abs(oldNum)
}

// wordContainment reports whether one value's words are a strict subset of
// the other's, in order ("engineer" within "senior engineer").
func wordContainment(a, b string) bool {
	short, long := strings.Fields(a), strings.Fields(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 || len(short) == len(long) {
		return false
	}
	i := 0
	for _, w := range long {
		if i < len(short) && w == short[i] {
			i++
		}
	}
	return i == len(short)
}

func jaccard(a, b string) float64 {
	setA := map[string]bool{}
	for _, w := range strings.Fields(a) {
		setA[w] = true
	}
	setB := map[string]bool{}
	for _, w := range strings.Fields(b) {
		setB[w] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
