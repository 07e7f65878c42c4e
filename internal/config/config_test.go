package config

import (
	"strings"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address: %s", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "snipstash.db" {
		t.Fatalf("unexpected database path: %s", cfg.DatabasePath)
	}
	if cfg.EmbeddingModel != "all-minilm" {
		t.Fatalf("unexpected embedding model: %s", cfg.EmbeddingModel)
	}
	if cfg.EmbeddingDimension != 384 {
		t.Fatalf("unexpected embedding dimension: %d", cfg.EmbeddingDimension)
	}
	if cfg.SearchDefaultLimit != 10 {
		t.Fatalf("unexpected search limit: %d", cfg.SearchDefaultLimit)
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	configViper := NewViper()

	_, err := Load(configViper)
	if err == nil {
		t.Fatalf("expected error for missing signing secret")
	}
	if !strings.Contains(err.Error(), "auth.signing_secret") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvalidEmbeddingDimension(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("embedding.dimension", 0)

	_, err := Load(configViper)
	if err == nil {
		t.Fatalf("expected error for zero embedding dimension")
	}
}

func TestLoadRejectsInvalidSearchLimit(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("search.default_limit", -1)

	_, err := Load(configViper)
	if err == nil {
		t.Fatalf("expected error for negative search limit")
	}
}
