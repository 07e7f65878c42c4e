package embedding

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Vector is a fixed-length embedding. Vectors are replaced wholesale,
// never mutated after generation.
type Vector []float32

// ErrMalformedVector indicates a persisted embedding that cannot be used
// for similarity scoring.
var ErrMalformedVector = errors.New("embedding: malformed vector")

// Decode parses a JSON-serialized embedding and validates that every
// component is finite.
func Decode(raw []byte) (Vector, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedVector)
	}
	var vector Vector
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVector, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrMalformedVector)
	}
	for _, component := range vector {
		if math.IsNaN(float64(component)) || math.IsInf(float64(component), 0) {
			return nil, fmt.Errorf("%w: non-finite component", ErrMalformedVector)
		}
	}
	return vector, nil
}

// Encode serializes the vector as a JSON array.
func (v Vector) Encode() ([]byte, error) {
	return json.Marshal(v)
}

// Cosine returns the cosine similarity of two vectors. Length mismatches
// and zero-magnitude vectors score 0 rather than failing: a ranking pass
// must never crash on a single bad candidate.
func Cosine(a, b Vector) float64 {
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

// normalize scales the vector to unit Euclidean norm. It returns an error
// for zero-magnitude input, which cannot be normalized.
func normalize(v Vector) (Vector, error) {
	var norm float64
	for _, component := range v {
		norm += float64(component) * float64(component)
	}
	if norm == 0 {
		return nil, fmt.Errorf("%w: zero magnitude", ErrMalformedVector)
	}
	scale := 1 / math.Sqrt(norm)
	normalized := make(Vector, len(v))
	for i, component := range v {
		normalized[i] = float32(float64(component) * scale)
	}
	return normalized, nil
}
