package embedding

import (
	"fmt"

	"github.com/blockhead22/crt/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient builds the embedding client behind similarity search and the
// classifier. The openai provider emits vectors sized for the facts
// table's embedding column; the mock keeps its own small dimension and
// only suits hermetic runs.
func NewClient(provider, apiKey string) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %q (valid: openai, mock)", provider)
	}
}
