package cmd

import (
	"context"
	"testing"

	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/recommend"
	"github.com/spigell/assessment-recommender/internal/tfidf"
)

func TestCatalogSources(t *testing.T) {
	tests := []struct {
		name         string
		config       *Config
		wantPrimary  string
		wantFallback bool
	}{
		{name: "no catalog section", config: &Config{}, wantFallback: true},
		{name: "file with fallback", config: &Config{Catalog: &CatalogConfig{File: "c.json", Fallback: true}}, wantPrimary: "file:c.json", wantFallback: true},
		{name: "file only", config: &Config{Catalog: &CatalogConfig{File: " c.json "}}, wantPrimary: "file:c.json"},
		{name: "nothing configured", config: &Config{Catalog: &CatalogConfig{}}, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, fallback := catalogSources(tt.config)
			if tt.wantPrimary == "" && primary != nil {
				t.Fatalf("unexpected primary %s", primary.Name())
			}
			if tt.wantPrimary != "" && (primary == nil || primary.Name() != tt.wantPrimary) {
				t.Fatalf("expected primary %s, got %v", tt.wantPrimary, primary)
			}
			if (fallback != nil) != tt.wantFallback {
				t.Fatalf("expected fallback %v, got %v", tt.wantFallback, fallback)
			}
		})
	}
}

func TestLoadCatalogFallsBackToBuiltin(t *testing.T) {
	config := &Config{Catalog: &CatalogConfig{File: "/does/not/exist.json", Fallback: true}}

	snap, err := loadCatalog(context.Background(), config, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Source() != (catalog.StaticFallbackSource{}).Name() || snap.Len() != 15 {
		t.Fatalf("expected the built-in catalog, got %s with %d records", snap.Source(), snap.Len())
	}
}

func TestNewEngineOptions(t *testing.T) {
	engine := newEngine(&Config{Engine: &EngineConfig{TopK: 5, MaxFeatures: 100, StrictDuration: true}})
	opts := engine.Options()
	if opts.DefaultTopK != 5 || !opts.StrictDuration || opts.Vectorizer.MaxFeatures != 100 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.Vectorizer.NgramMax != tfidf.DefaultNgramMax {
		t.Fatalf("expected default n-gram size, got %d", opts.Vectorizer.NgramMax)
	}

	defaults := newEngine(&Config{}).Options()
	if defaults.DefaultTopK != recommend.DefaultTopK {
		t.Fatalf("expected default top_k, got %d", defaults.DefaultTopK)
	}
}

func TestRedactedConfig(t *testing.T) {
	config := &Config{AI: &AIConfig{Gemini: &GeminiConfig{APIKey: "secret", Model: "m"}}}

	out := redacted(config)
	if out.AI.Gemini.APIKey != "***" || out.AI.Gemini.Model != "m" {
		t.Fatalf("unexpected redacted config: %+v", out.AI.Gemini)
	}
	if config.AI.Gemini.APIKey != "secret" {
		t.Fatalf("redaction must not modify the original config")
	}
}
