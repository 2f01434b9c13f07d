// Package recommend ties normalisation, vectorisation, ranking and filtering
// into a single deterministic recommendation call. It never logs.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/ranking"
	"github.com/spigell/assessment-recommender/internal/textnorm"
	"github.com/spigell/assessment-recommender/internal/tfidf"
)

// DefaultTopK is used when a request does not set TopK.
const DefaultTopK = 10

// ErrInvalidInput is returned for requests that cannot be served.
var ErrInvalidInput = errors.New("invalid input")

// Options configure an Engine.
type Options struct {
	Vectorizer  tfidf.Options
	DefaultTopK int
	// StrictDuration returns an empty list instead of the unfiltered ranking
	// when no result fits the duration mentioned in the query.
	StrictDuration bool
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Vectorizer:  tfidf.DefaultOptions(),
		DefaultTopK: DefaultTopK,
	}
}

// Request is a single recommendation request.
type Request struct {
	Query string
	// Fallback is used when Query has no searchable content.
	Fallback string
	// TopK limits the number of results. Zero means the engine default.
	TopK int
	// Filters run after the duration constraint, in order.
	Filters []filtering.Filter
}

// Outcome carries the recommendations and how they were produced.
type Outcome struct {
	Results *ranking.Results
	Steps   []filtering.Step
	// Text is the raw text that was searched: Query or Fallback.
	Text       string
	Vocabulary int
}

// Engine produces recommendations from a catalog snapshot. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	opts Options
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.DefaultTopK < 1 {
		opts.DefaultTopK = DefaultTopK
	}
	return &Engine{opts: opts}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Recommend ranks records against the request text and returns at most TopK
// results, best first. An empty catalog yields an empty list.
func (e *Engine) Recommend(ctx context.Context, req Request, records []assessment.Record) (*Outcome, error) {
	topK := req.TopK
	if topK == 0 {
		topK = e.opts.DefaultTopK
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, req.TopK)
	}

	raw, query := pickText(req.Query, req.Fallback)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}

	for _, f := range req.Filters {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, f.Name(), err)
		}
	}

	out := &Outcome{Results: &ranking.Results{}, Text: raw}
	if len(records) == 0 {
		return out, nil
	}

	corpus := make([]string, len(records))
	for i := range records {
		corpus[i] = textnorm.Normalize(records[i].Document())
	}

	idx, err := tfidf.Build(ctx, corpus, query, e.opts.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("build vectors: %w", err)
	}
	out.Vocabulary = len(idx.Vocabulary)

	ranked := &ranking.Results{Items: ranking.Rank(idx.Query, idx.Documents, records)}

	steps := append([]filtering.Filter{filtering.NewDuration(raw, e.opts.StrictDuration)}, req.Filters...)
	filtered, report, err := filtering.New(nil, steps...).Run(ctx, ranked)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	filtered.Truncate(topK)
	out.Results = filtered
	out.Steps = report
	return out, nil
}

func pickText(query, fallback string) (string, string) {
	if n := textnorm.Normalize(query); n != "" {
		return query, n
	}
	return fallback, textnorm.Normalize(fallback)
}
