package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// mockDimensions keeps test vectors small.
const mockDimensions = 8

// MockClient produces deterministic unit vectors from a hash of the input
// text. Identical strings always embed identically, so similarity checks
// in tests behave predictably without any network dependency.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, mockDimensions)
	var norm float64
	for i := range vec {
		// xorshift keeps components spread without math/rand state
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
