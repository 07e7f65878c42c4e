package embedding

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSelfSimilarity(t *testing.T) {
	vector := Vector{0.5, -1.25, 3, 0.75}
	similarity := Cosine(vector, vector)
	if math.Abs(similarity-1) > 1e-6 {
		t.Fatalf("expected self similarity 1, got %f", similarity)
	}
}

func TestCosineIsSymmetric(t *testing.T) {
	a := Vector{1, 2, 3}
	b := Vector{-2, 0.5, 4}
	if Cosine(a, b) != Cosine(b, a) {
		t.Fatalf("cosine must be symmetric")
	}
}

func TestCosineStaysInRange(t *testing.T) {
	pairs := [][2]Vector{
		{{1, 0}, {0, 1}},
		{{1, 1}, {-1, -1}},
		{{0.1, 0.2, 0.3}, {100, -50, 25}},
	}
	for _, pair := range pairs {
		similarity := Cosine(pair[0], pair[1])
		if similarity < -1-1e-9 || similarity > 1+1e-9 {
			t.Fatalf("cosine out of range: %f", similarity)
		}
	}
}

func TestCosineZeroMagnitudeScoresZero(t *testing.T) {
	if Cosine(Vector{0, 0, 0}, Vector{1, 2, 3}) != 0 {
		t.Fatalf("zero vector must score 0")
	}
	if Cosine(Vector{1, 2, 3}, Vector{0, 0, 0}) != 0 {
		t.Fatalf("zero vector must score 0")
	}
}

func TestCosineLengthMismatchScoresZero(t *testing.T) {
	if Cosine(Vector{1, 2}, Vector{1, 2, 3}) != 0 {
		t.Fatalf("length mismatch must score 0, not fail")
	}
	if Cosine(nil, Vector{1}) != 0 {
		t.Fatalf("nil vector must score 0")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	original := Vector{0.25, -0.5, 1}
	raw, err := original.Encode()
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(decoded) != len(original) {
		t.Fatalf("unexpected decoded length: %d", len(decoded))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Fatalf("component %d mismatch: %f != %f", i, decoded[i], original[i])
		}
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	payloads := []string{
		"",
		"not json",
		"{}",
		`"[1,2,3]"`,
		"[]",
		`["a","b"]`,
	}
	for _, payload := range payloads {
		if _, err := Decode([]byte(payload)); !errors.Is(err, ErrMalformedVector) {
			t.Fatalf("expected malformed vector error for %q, got %v", payload, err)
		}
	}
}
