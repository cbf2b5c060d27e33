package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/blockhead22/crt/internal/domain"
)

// extractRule maps one phrasing pattern to a slot. The first capture group
// is the value.
type extractRule struct {
	slot       string
	re         *regexp.Regexp
	confidence float32
}

var mockRules = []extractRule{
	{"employer", regexp.MustCompile(`(?i)\bi work (?:at|for) ([A-Za-z0-9][\w .&-]*?)(?:\s+now)?\s*[.!?]?\s*$`), 0.95},
	{"employer", regexp.MustCompile(`(?i)\bi(?:'m| am) (?:employed|working) at ([A-Za-z0-9][\w .&-]*?)\s*[.!?]?\s*$`), 0.9},
	{"location", regexp.MustCompile(`(?i)\bi live in ([A-Za-z][\w .-]*?)\s*[.!?]?\s*$`), 0.95},
	{"location", regexp.MustCompile(`(?i)\bi(?:'m| am) based in ([A-Za-z][\w .-]*?)\s*[.!?]?\s*$`), 0.9},
	{"age", regexp.MustCompile(`(?i)\bi(?:'m| am) (\d{1,3}) years old\b`), 0.95},
	{"years_experience", regexp.MustCompile(`(?i)\bi have (\d{1,2})\+? years(?: of)? experience\b`), 0.9},
	{"years_experience", regexp.MustCompile(`(?i)\b(?:it's|its) (?:closer to|more like|about|around) (\d{1,2})\b`), 0.7},
	{"dietary_preference", regexp.MustCompile(`(?i)\bi(?:'m| am) (?:a )?(vegetarian|vegan|pescatarian)\b`), 0.95},
	{"favorite_language", regexp.MustCompile(`(?i)\bmy favou?rite language is ([A-Za-z+#]+)\b`), 0.9},
}

// correction phrasings that carry the new value inline
var mockCorrectionRules = []extractRule{
	{"employer", regexp.MustCompile(`(?i)\bactually,?\s+i work (?:at|for) ([A-Za-z0-9][\w .&-]*?)(?:\s+now)?(?:,?\s+not\s+.+)?\s*[.!?]?\s*$`), 0.95},
	{"location", regexp.MustCompile(`(?i)\bactually,?\s+i live in ([A-Za-z][\w .-]*?)(?:,?\s+not\s+.+)?\s*[.!?]?\s*$`), 0.95},
}

// MockExtractor matches a fixed table of phrasing patterns. Deterministic,
// no network, used in tests and local development.
type MockExtractor struct{}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) Extract(_ context.Context, text string) ([]domain.ExtractedFact, error) {
	out := []domain.ExtractedFact{}
	seen := map[string]bool{}

	apply := func(rules []extractRule) {
		for _, r := range rules {
			if seen[r.slot] {
				continue
			}
			match := r.re.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			value := strings.TrimSpace(match[1])
			if value == "" {
				continue
			}
			seen[r.slot] = true
			out = append(out, domain.ExtractedFact{
				Slot:       r.slot,
				Value:      value,
				Confidence: r.confidence,
			})
		}
	}

	// correction phrasings first so "actually X, not Y" yields X, not Y
	apply(mockCorrectionRules)
	apply(mockRules)

	return out, nil
}
