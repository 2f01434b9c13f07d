// Package tfidf builds TF-IDF vectors over a corpus plus one query.
//
// The vocabulary is derived from the corpus and the query together, so an
// index is only valid for the query it was built with. Inputs are expected to
// be normalized already (see package textnorm).
package tfidf

import (
	"context"
	_ "embed"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxFeatures = 5000
	DefaultNgramMax    = 2
	DefaultMinTokenLen = 2
)

//go:embed stopwords.txt
var stopWordsRaw string

// EnglishStopWords is the fixed stop-word list applied by DefaultOptions.
var EnglishStopWords = parseStopWords(stopWordsRaw)

func parseStopWords(raw string) map[string]struct{} {
	words := strings.Fields(raw)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Options controls vocabulary construction.
type Options struct {
	// MaxFeatures caps the vocabulary. Terms are kept by descending document
	// frequency, ties broken alphabetically. Zero or less means no cap.
	MaxFeatures int
	// NgramMax is the longest n-gram generated; 1 means unigrams only.
	NgramMax int
	// MinTokenLen drops shorter tokens (in runes) before n-grams are built.
	MinTokenLen int
	StopWords   map[string]struct{}
}

// DefaultOptions returns unigrams and bigrams, a 5000 term cap and the English stop words.
func DefaultOptions() Options {
	return Options{
		MaxFeatures: DefaultMaxFeatures,
		NgramMax:    DefaultNgramMax,
		MinTokenLen: DefaultMinTokenLen,
		StopWords:   EnglishStopWords,
	}
}

// Index is the result of a single build.
type Index struct {
	// Vocabulary lists terms by their vector dimension.
	Vocabulary []string
	Query      Vector
	Documents  []Vector
}

// Build vectorizes corpus and query against a shared vocabulary.
// An empty corpus yields an index without documents. The only error is a
// cancelled or expired ctx.
func Build(ctx context.Context, corpus []string, query string, opts Options) (*Index, error) {
	if len(corpus) == 0 {
		return &Index{}, nil
	}

	if opts.NgramMax < 1 {
		opts.NgramMax = 1
	}

	// The query is the last document of the combined set.
	n := len(corpus) + 1
	counts := make([]map[string]int, n)
	df := make(map[string]int)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := query
		if i < len(corpus) {
			text = corpus[i]
		}

		counts[i] = termCounts(analyze(text, opts))
		for term := range counts[i] {
			df[term]++
		}
	}

	vocab := selectVocabulary(df, opts.MaxFeatures)
	dims := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		dims[term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	idx := &Index{
		Vocabulary: vocab,
		Documents:  make([]Vector, len(corpus)),
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v := weigh(counts[i], dims, idf)
		if i < len(corpus) {
			idx.Documents[i] = v
		} else {
			idx.Query = v
		}
	}

	return idx, nil
}

// analyze splits text into tokens, removes stop words and short tokens, and
// returns the n-grams built from what is left.
func analyze(text string, opts Options) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < opts.MinTokenLen {
			continue
		}
		if _, stop := opts.StopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}

	terms := make([]string, 0, len(tokens)*opts.NgramMax)
	terms = append(terms, tokens...)
	for size := 2; size <= opts.NgramMax; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+size], " "))
		}
	}

	return terms
}

func termCounts(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}

// selectVocabulary keeps up to limit terms with the highest document frequency
// and returns them in alphabetical order.
func selectVocabulary(df map[string]int, limit int) []string {
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}

	if limit > 0 && len(terms) > limit {
		sort.Slice(terms, func(i, j int) bool {
			if df[terms[i]] == df[terms[j]] {
				return terms[i] < terms[j]
			}
			return df[terms[i]] > df[terms[j]]
		})
		terms = terms[:limit]
	}

	sort.Strings(terms)
	return terms
}

func weigh(counts map[string]int, dims map[string]int, idf []float64) Vector {
	v := make(Vector, 0, len(counts))
	for term, c := range counts {
		dim, ok := dims[term]
		if !ok {
			continue
		}
		v = append(v, Entry{Dim: dim, Weight: float64(c) * idf[dim]})
	}

	sort.Slice(v, func(i, j int) bool { return v[i].Dim < v[j].Dim })
	return v.normalized()
}
