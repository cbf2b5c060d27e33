package service

import (
	"regexp"
	"strings"

	"github.com/blockhead22/crt/internal/domain"
)

// CorrectionDetector finds correction phrasing in the text surrounding a
// new assertion. It is a strategy interface so the regex library here can
// be swapped for a learned classifier without touching the classifier's
// control flow.
type CorrectionDetector interface {
	Detect(text string) domain.CorrectionSignal
}

type correctionPattern struct {
	re     *regexp.Regexp
	kind   domain.CorrectionKind
	oldIdx int
	newIdx int
}

// PatternDetector is the default regex-based detector.
type PatternDetector struct {
	patterns []correctionPattern
}

func NewPatternDetector() *PatternDetector {
	return &PatternDetector{
		patterns: []correctionPattern{
			// "Actually, I work at Amazon, not Microsoft" / "I'm actually 34, not 32"
			{
				re:     regexp.MustCompile(`(?i)\bactually,?\s+(?:i(?:'m| am| work at| live in| have| use|t's| mean)?\s+)?(.+?),?\s+not\s+(.+?)\s*[.!?]?\s*$`),
				kind:   domain.SignalDirect,
				oldIdx: 2,
				newIdx: 1,
			},
			// "It's X, not Y" / "I mean X, not Y" / "To be clear, it's X not Y"
			{
				re:     regexp.MustCompile(`(?i)\b(?:it'?s|i mean|to be clear,?\s+it'?s)\s+(.+?),?\s+not\s+(.+?)\s*[.!?]?\s*$`),
				kind:   domain.SignalDirect,
				oldIdx: 2,
				newIdx: 1,
			},
			// "I said 10 but it's closer to 12"
			{
				re:     regexp.MustCompile(`(?i)\bi said\s+(.+?)\s+but\s+(?:it'?s|it is|i(?:'m| am)?)\s*(?:closer to|more like|probably|really)\s+(.+?)\s*[.!?]?\s*$`),
				kind:   domain.SignalHedged,
				oldIdx: 1,
				newIdx: 2,
			},
			// "10 was wrong, it's more like 12"
			{
				re:     regexp.MustCompile(`(?i)\b(.+?)\s+was wrong,?\s+(?:it'?s|it is)\s+(?:more like|closer to)\s+(.+?)\s*[.!?]?\s*$`),
				kind:   domain.SignalHedged,
				oldIdx: 1,
				newIdx: 2,
			},
		},
	}
}

func (d *PatternDetector) Detect(text string) domain.CorrectionSignal {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.NoSignal()
	}
	for _, p := range d.patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return domain.CorrectionSignal{
			Kind:     p.kind,
			OldValue: strings.TrimSpace(m[p.oldIdx]),
			NewValue: strings.TrimSpace(m[p.newIdx]),
		}
	}
	return domain.NoSignal()
}

// DenialRetractionClassifier is the extension point for denial phrasing
// ("I never said X") and later retractions of denials. There is no settled
// policy for retraction yet; the default treats any denial as a hard
// conflict so nothing is silently overwritten.
type DenialRetractionClassifier interface {
	// Classify returns the contradiction type for the text and whether a
	// denial was detected at all.
	Classify(text string) (domain.ContradictionType, bool)
}

var denialRe = regexp.MustCompile(`(?i)\bi never (?:said|told you|mentioned|claimed)\b`)

// ConservativeDenialClassifier maps every denial to CONFLICT.
type ConservativeDenialClassifier struct{}

func (ConservativeDenialClassifier) Classify(text string) (domain.ContradictionType, bool) {
	if denialRe.MatchString(text) {
		return domain.ContradictionConflict, true
	}
	return domain.ContradictionNone, false
}
