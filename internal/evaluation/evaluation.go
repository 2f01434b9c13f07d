// Package evaluation measures recommendation quality against a benchmark of
// queries with known relevant assessments.
package evaluation

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/recommend"
)

// DefaultK is the cut-off used when none is given.
const DefaultK = 3

//go:embed benchmark.yaml
var defaultBenchmark []byte

// Case is a single benchmark query.
type Case struct {
	Query         string   `yaml:"query"`
	ExpectedNames []string `yaml:"expected_names"`
}

// DefaultBenchmark returns the sample benchmark for the built-in catalog.
func DefaultBenchmark() ([]Case, error) {
	return parseBenchmark(defaultBenchmark)
}

// LoadBenchmark reads a YAML list of cases.
func LoadBenchmark(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark: %w", err)
	}
	return parseBenchmark(data)
}

func parseBenchmark(data []byte) ([]Case, error) {
	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("decode benchmark: %w", err)
	}
	for i, c := range cases {
		if c.Query == "" {
			return nil, fmt.Errorf("benchmark case %d: query is empty", i)
		}
	}
	return cases, nil
}

// RecallAtK is the share of relevant names found in the first k predictions.
func RecallAtK(predicted, relevant []string, k int) float64 {
	want := set(relevant)
	if len(want) == 0 {
		return 0
	}

	hits := 0
	for name := range set(head(predicted, k)) {
		if _, ok := want[name]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

// AveragePrecisionAtK averages precision at every rank holding a new
// relevant name, normalised by min(len(relevant), k).
func AveragePrecisionAtK(predicted, relevant []string, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	want := set(relevant)
	seen := make(map[string]struct{})

	var score, hits float64
	for i, p := range head(predicted, k) {
		_, hit := want[p]
		_, dup := seen[p]
		seen[p] = struct{}{}
		if hit && !dup {
			hits++
			score += hits / float64(i+1)
		}
	}
	return score / float64(min(len(relevant), k))
}

// Recommender is the engine under evaluation.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request, records []assessment.Record) (*recommend.Outcome, error)
}

// CaseResult holds the metrics of one case.
type CaseResult struct {
	Query     string
	Expected  []string
	Predicted []string
	Recall    float64
	AP        float64
}

// Report summarises a benchmark run.
type Report struct {
	K          int
	Cases      []CaseResult
	MeanRecall float64
	MAP        float64
}

// Evaluate runs every case with top_k = k.
func Evaluate(ctx context.Context, engine Recommender, records []assessment.Record, cases []Case, k int) (*Report, error) {
	if k <= 0 {
		k = DefaultK
	}

	report := &Report{K: k}
	for _, c := range cases {
		out, err := engine.Recommend(ctx, recommend.Request{Query: c.Query, TopK: k}, records)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", c.Query, err)
		}

		predicted := out.Results.Names()
		res := CaseResult{
			Query:     c.Query,
			Expected:  c.ExpectedNames,
			Predicted: predicted,
			Recall:    RecallAtK(predicted, c.ExpectedNames, k),
			AP:        AveragePrecisionAtK(predicted, c.ExpectedNames, k),
		}
		report.Cases = append(report.Cases, res)
		report.MeanRecall += res.Recall
		report.MAP += res.AP
	}

	if n := len(report.Cases); n > 0 {
		report.MeanRecall /= float64(n)
		report.MAP /= float64(n)
	}
	return report, nil
}

func head(list []string, k int) []string {
	if k >= 0 && len(list) > k {
		return list[:k]
	}
	return list
}

func set(list []string) map[string]struct{} {
	out := make(map[string]struct{}, len(list))
	for _, s := range list {
		out[s] = struct{}{}
	}
	return out
}
