// Package ranking orders catalog records by similarity to a query.
package ranking

import (
	"math"
	"sort"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/tfidf"
)

// Result is a record paired with its similarity to the query.
type Result struct {
	Record *assessment.Record
	// Index is the record position in the catalog snapshot.
	Index int
	Score float64
}

// Rank scores every record against the query and returns all of them sorted by
// descending score. Equal scores keep catalog order.
func Rank(query tfidf.Vector, docs []tfidf.Vector, records []assessment.Record) []Result {
	n := min(len(docs), len(records))
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{
			Record: &records[i],
			Index:  i,
			Score:  clamp01(query.Dot(docs[i])),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Index < results[j].Index
		}
		return results[i].Score > results[j].Score
	})

	return results
}

// clamp01 absorbs floating point drift; TF-IDF weights are never negative.
func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x) || x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
