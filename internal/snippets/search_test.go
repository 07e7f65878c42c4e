package snippets

import (
	"testing"

	"github.com/snipstash/backend/internal/embedding"
)

func encodedVector(t *testing.T, vector embedding.Vector) []byte {
	t.Helper()
	raw, err := vector.Encode()
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	return raw
}

func TestRankOrdersBySimilarityDescending(t *testing.T) {
	service := &Service{}
	query := embedding.Vector{1, 0, 0}
	candidates := []Snippet{
		{ID: 1, Embedding: encodedVector(t, embedding.Vector{0, 1, 0})},
		{ID: 2, Embedding: encodedVector(t, embedding.Vector{1, 0, 0})},
		{ID: 3, Embedding: encodedVector(t, embedding.Vector{0.7, 0.7, 0})},
	}

	ranked := service.rank(query, candidates, 10)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	if ranked[0].ID != 2 || ranked[1].ID != 3 || ranked[2].ID != 1 {
		t.Fatalf("unexpected order: %d, %d, %d", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}

func TestRankTruncatesToK(t *testing.T) {
	service := &Service{}
	query := embedding.Vector{1, 0}
	candidates := make([]Snippet, 15)
	for i := range candidates {
		candidates[i] = Snippet{ID: int64(i + 1), Embedding: encodedVector(t, embedding.Vector{1, 0})}
	}

	ranked := service.rank(query, candidates, 10)
	if len(ranked) != 10 {
		t.Fatalf("expected 10 results, got %d", len(ranked))
	}
}

func TestRankSkipsMissingAndMalformedVectors(t *testing.T) {
	service := &Service{}
	query := embedding.Vector{1, 0}
	candidates := []Snippet{
		{ID: 1},
		{ID: 2, Embedding: []byte("not json")},
		{ID: 3, Embedding: []byte(`{"dim":2}`)},
		{ID: 4, Embedding: encodedVector(t, embedding.Vector{0.5, 0.5})},
	}

	ranked := service.rank(query, candidates, 10)
	if len(ranked) != 1 || ranked[0].ID != 4 {
		t.Fatalf("expected only the valid candidate, got %v", ranked)
	}
}

func TestRankScoresMismatchedLengthsZero(t *testing.T) {
	service := &Service{}
	query := embedding.Vector{1, 0}
	candidates := []Snippet{
		{ID: 1, Embedding: encodedVector(t, embedding.Vector{1, 0, 0})},
		{ID: 2, Embedding: encodedVector(t, embedding.Vector{1, 0})},
	}

	ranked := service.rank(query, candidates, 10)
	if len(ranked) != 2 {
		t.Fatalf("expected both candidates ranked, got %d", len(ranked))
	}
	// The matching-length candidate outranks the zero-scored mismatch.
	if ranked[0].ID != 2 {
		t.Fatalf("expected candidate 2 first, got %d", ranked[0].ID)
	}
}

func TestRankBreaksTiesByCandidateOrder(t *testing.T) {
	service := &Service{}
	query := embedding.Vector{1, 0}
	candidates := []Snippet{
		{ID: 7, Embedding: encodedVector(t, embedding.Vector{0, 1})},
		{ID: 8, Embedding: encodedVector(t, embedding.Vector{0, 1})},
		{ID: 9, Embedding: encodedVector(t, embedding.Vector{0, 1})},
	}

	ranked := service.rank(query, candidates, 10)
	if ranked[0].ID != 7 || ranked[1].ID != 8 || ranked[2].ID != 9 {
		t.Fatalf("ties must preserve candidate order, got %d, %d, %d", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}
