package service

import (
	"context"
	"errors"
	"math"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/google/uuid"
)

// VectorSearcher implements the similarity-search collaborator on top of
// the facts table's pgvector column.
type VectorSearcher struct {
	emb   domain.EmbeddingClient
	facts domain.FactStore
}

func NewVectorSearcher(emb domain.EmbeddingClient, facts domain.FactStore) *VectorSearcher {
	return &VectorSearcher{emb: emb, facts: facts}
}

func (s *VectorSearcher) Search(ctx context.Context, threadID uuid.UUID, query string, k int) ([]domain.FactWithScore, error) {
	if s.emb == nil {
		return nil, errors.New("embedding client not configured")
	}
	vec, err := s.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.facts.SearchByEmbedding(ctx, threadID, vec, k)
}

// Cosine returns the cosine similarity of two vectors, 0 for mismatched
// or zero-length input.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
