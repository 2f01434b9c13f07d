// Package ai describes optional language-model helpers. They annotate
// recommendations and never change their order or scores.
package ai

import (
	"context"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

// Explanations maps an assessment name to a one-sentence reason.
type Explanations map[string]string

type Explainer interface {
	Explain(ctx context.Context, query string, records []assessment.Record) (Explanations, error)
}
