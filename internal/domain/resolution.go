package domain

import "strings"

// ResolutionIntent is the parsed meaning of a user's free-text answer to a
// clarification question. Parsing is a decision table over normalized
// text, not a fallback chain; anything unmatched is IntentUnclear and
// triggers a re-prompt rather than a guessed resolution.
type ResolutionIntent string

const (
	IntentChooseOld ResolutionIntent = "user_chose_old"
	IntentChooseNew ResolutionIntent = "user_chose_new"
	IntentKeepBoth  ResolutionIntent = "keep_both"
	IntentDecline   ResolutionIntent = "decline"
	IntentUnclear   ResolutionIntent = "unclear"
)

// intentTable maps normalized answer phrases to intents. First match wins;
// table order puts the more specific phrases first.
var intentTable = []struct {
	phrase string
	intent ResolutionIntent
}{
	{"the first one", IntentChooseOld},
	{"the old one", IntentChooseOld},
	{"the original", IntentChooseOld},
	{"first", IntentChooseOld},
	{"the second one", IntentChooseNew},
	{"the new one", IntentChooseNew},
	{"the latest", IntentChooseNew},
	{"second", IntentChooseNew},
	{"both are true", IntentKeepBoth},
	{"keep both", IntentKeepBoth},
	{"both", IntentKeepBoth},
	{"don't care", IntentDecline},
	{"skip", IntentDecline},
	{"later", IntentDecline},
	{"never mind", IntentDecline},
}

// ParseResolutionIntent classifies a free-text answer. When the answer
// literally contains one of the contested values, that beats the phrase
// table: naming a value is the clearest possible disambiguation.
func ParseResolutionIntent(answer, oldValue, newValue string) ResolutionIntent {
	norm := NormalizeValue(answer)
	if norm == "" {
		return IntentUnclear
	}

	oldNorm := NormalizeValue(oldValue)
	newNorm := NormalizeValue(newValue)
	containsOld := oldNorm != "" && strings.Contains(norm, oldNorm)
	containsNew := newNorm != "" && strings.Contains(norm, newNorm)
	switch {
	case containsOld && !containsNew:
		return IntentChooseOld
	case containsNew && !containsOld:
		return IntentChooseNew
	case containsOld && containsNew:
		// Naming both values is ambiguous unless the phrasing says so.
		if strings.Contains(norm, "both") {
			return IntentKeepBoth
		}
		return IntentUnclear
	}

	for _, row := range intentTable {
		if strings.Contains(norm, row.phrase) {
			return row.intent
		}
	}
	return IntentUnclear
}
