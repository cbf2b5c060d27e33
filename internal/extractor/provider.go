package extractor

import (
	"fmt"

	"github.com/blockhead22/crt/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewExtractor creates a fact extractor based on the provider name.
// Returns an error if the provider is unknown or the API key is empty
// (except for mock).
func NewExtractor(provider, apiKey string) (domain.FactExtractor, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIExtractor(apiKey), nil

	case ProviderMock:
		return NewMockExtractor(), nil

	default:
		return nil, fmt.Errorf("unknown extractor provider: %s (valid options: openai, mock)", provider)
	}
}
