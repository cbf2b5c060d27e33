package domain

import (
	"strconv"
	"strings"
)

type CorrectionKind string

const (
	// SignalNone means no correction phrasing was found.
	SignalNone CorrectionKind = "none"
	// SignalDirect is explicit correction language: "I'm actually X, not Y".
	SignalDirect CorrectionKind = "direct"
	// SignalHedged is softer phrasing: "I said X but it's closer to Y".
	SignalHedged CorrectionKind = "hedged"
)

// CorrectionSignal is the tagged result of correction-pattern detection on
// the text surrounding a new assertion. OldValue and NewValue are the
// values the pattern itself extracted, which may or may not correspond to
// any stored fact — AppliesTo decides that.
type CorrectionSignal struct {
	Kind     CorrectionKind
	OldValue string
	NewValue string
}

func NoSignal() CorrectionSignal {
	return CorrectionSignal{Kind: SignalNone}
}

func (s CorrectionSignal) Present() bool {
	return s.Kind != SignalNone
}

// AppliesTo reports whether this correction signal is grounded in the
// given stored old/new values. Both extracted sides must match; matching
// only one side is never sufficient. OR-semantics here caused cross-slot
// misclassification in the past, so the predicate is deliberately strict
// and tested on its own.
func (s CorrectionSignal) AppliesTo(oldValue, newValue string) bool {
	if !s.Present() {
		return false
	}
	return MatchesValue(s.OldValue, oldValue) && MatchesValue(s.NewValue, newValue)
}

// MatchesValue compares an extracted value against a stored one. Equality
// is on normalized text, with one tolerance: a numeric stored value matches
// an extracted value whose leading token is the same number ("10 years"
// matches "10"). The tolerance is per side; the AND across sides stays.
func MatchesValue(extracted, stored string) bool {
	en, sn := NormalizeValue(extracted), NormalizeValue(stored)
	if en == sn {
		return true
	}
	ef, sf := leadingNumber(en), leadingNumber(sn)
	if ef != "" && ef == sf {
		return true
	}
	return false
}

func leadingNumber(v string) string {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	tok := strings.TrimRight(fields[0], ".,")
	if _, err := strconv.ParseFloat(tok, 64); err != nil {
		return ""
	}
	return tok
}

// NormalizeValue lowercases, trims, and collapses inner whitespace so that
// values compare on content rather than formatting.
func NormalizeValue(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(v))), " ")
}
