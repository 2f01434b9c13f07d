package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

// Source loads a catalog snapshot.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Snapshot, error)
}

// FileSource reads a JSON catalog file holding either full records or rows
// produced by the catalog scraper.
type FileSource struct {
	Path string
	// SourceName prefixes generated descriptions.
	SourceName string
}

func (f *FileSource) Name() string { return "file:" + f.Path }

func (f *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode catalog file %s: %w", f.Path, err)
	}

	records, err := Records(f.SourceName, rows)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", f.Path, err)
	}

	return NewSnapshot(f.Name(), records), nil
}

//go:embed fallback.yaml
var fallbackYAML []byte

// StaticFallbackSource serves the built-in catalog.
type StaticFallbackSource struct{}

func (StaticFallbackSource) Name() string { return "builtin" }

func (s StaticFallbackSource) Load(context.Context) (*Snapshot, error) {
	var records []assessment.Record
	if err := yaml.Unmarshal(fallbackYAML, &records); err != nil {
		return nil, fmt.Errorf("decode built-in catalog: %w", err)
	}
	return NewSnapshot(s.Name(), records), nil
}

// Resolve loads the primary source and falls back to the second one when it
// fails. The choice is logged; a nil primary goes straight to the fallback.
func Resolve(ctx context.Context, logger *zap.Logger, primary, fallback Source) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if primary != nil {
		snap, err := primary.Load(ctx)
		if err == nil {
			logger.Info("catalog loaded", zap.String("source", primary.Name()), zap.Int("records", snap.Len()))
			return snap, nil
		}
		if fallback == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.Warn("catalog source failed, using fallback",
			zap.String("source", primary.Name()),
			zap.String("fallback", fallback.Name()),
			zap.Error(err),
		)
	}

	if fallback == nil {
		return nil, errors.New("no catalog source configured")
	}

	snap, err := fallback.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded", zap.String("source", fallback.Name()), zap.Int("records", snap.Len()))
	return snap, nil
}
