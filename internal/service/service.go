// Package service serves recommendations from the current catalog snapshot.
// It resolves URL input, runs the engine and optionally adds explanations and
// history records.
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/history"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/ranking"
	"github.com/spigell/assessment-recommender/internal/recommend"
	"github.com/spigell/assessment-recommender/internal/utils"
)

const (
	defaultMaxLogLength = 120
	historyQueryLength  = 1000
)

// Fetcher extracts job description text from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HistoryRecorder stores served requests.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Deps aggregates the collaborators of a Service. Store and Engine are
// required; everything else is optional.
type Deps struct {
	Store     *catalog.Store
	Engine    *recommend.Engine
	Fetcher   Fetcher
	Explainer ai.Explainer
	History   HistoryRecorder
	Logger    *zap.Logger
	// MaxLogLength caps query previews in logs.
	MaxLogLength int
}

type Service struct {
	store     *catalog.Store
	engine    *recommend.Engine
	fetcher   Fetcher
	explainer ai.Explainer
	history   HistoryRecorder
	logger    *zap.Logger
	maxLogLen int
}

func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxLen := deps.MaxLogLength
	if maxLen <= 0 {
		maxLen = defaultMaxLogLength
	}

	return &Service{
		store:     deps.Store,
		engine:    deps.Engine,
		fetcher:   deps.Fetcher,
		explainer: deps.Explainer,
		history:   deps.History,
		logger:    log,
		maxLogLen: maxLen,
	}
}

// Query is a recommendation request as received from a transport.
type Query struct {
	ID   string
	Text string
	// URL points to a job posting. Its text replaces Text when it can be
	// fetched; Text stays as the fallback.
	URL     string
	TopK    int
	Filters []filtering.Filter
	Explain bool
}

// Recommendation is a ranked assessment.
type Recommendation struct {
	Name            string              `json:"name"`
	URL             string              `json:"url"`
	RemoteTesting   assessment.YesNo    `json:"remote_testing"`
	AdaptiveSupport assessment.YesNo    `json:"adaptive_support"`
	Duration        assessment.Duration `json:"duration"`
	TestType        assessment.TestType `json:"test_type"`
	Score           float64             `json:"score"`
	Reason          string              `json:"reason,omitempty"`
}

// CatalogInfo identifies the snapshot that served a request.
type CatalogInfo struct {
	Source  string `json:"source"`
	Version uint64 `json:"version"`
	Records int    `json:"records"`
}

// Response is the outcome of a request.
type Response struct {
	ID              string           `json:"-"`
	Recommendations []Recommendation `json:"recommendations"`
	Catalog         CatalogInfo      `json:"-"`
	Steps           []filtering.Step `json:"-"`
	// Ranking holds the engine results behind Recommendations.
	Ranking *ranking.Results `json:"-"`
	// Text is the raw text that was searched.
	Text string `json:"-"`
}

// Catalog returns the current snapshot.
func (s *Service) Catalog() *catalog.Snapshot {
	return s.store.Snapshot()
}

// Recommend serves q against the snapshot current at call time. Only
// recommend.ErrInvalidInput and context errors are returned; fetch,
// explanation and history failures are logged.
func (s *Service) Recommend(ctx context.Context, q Query) (*Response, error) {
	snap := s.store.Snapshot()
	log := logger.WithFields(s.logger, logger.RequestFields(q.ID, q.Text, s.maxLogLen)...)
	log = logger.WithFields(log, logger.CatalogFields(snap.Source(), snap.Version())...)

	text, fallback := q.Text, ""
	if url := strings.TrimSpace(q.URL); url != "" {
		if fetched := s.fetch(ctx, log, url); fetched != "" {
			text, fallback = fetched, q.Text
		}
	}

	out, err := s.engine.Recommend(ctx, recommend.Request{
		Query:    text,
		Fallback: fallback,
		TopK:     q.TopK,
		Filters:  q.Filters,
	}, snap.Records())
	if err != nil {
		return nil, err
	}

	resp := &Response{
		ID:              q.ID,
		Recommendations: toRecommendations(out.Results),
		Catalog:         CatalogInfo{Source: snap.Source(), Version: snap.Version(), Records: snap.Len()},
		Steps:           out.Steps,
		Ranking:         out.Results,
		Text:            out.Text,
	}

	if q.Explain {
		s.explain(ctx, log, resp, out.Results)
	}

	for _, step := range out.Steps {
		if step.Restored {
			log.Info("no assessment fits the requested duration, returning unfiltered ranking",
				zap.String("filter", step.Name),
				zap.Int("candidates", step.Initial),
			)
		}
	}

	log.Info("recommendation served",
		zap.Int("results", len(resp.Recommendations)),
		zap.Float64("top_score", topScore(resp)),
		zap.Int("vocabulary", out.Vocabulary),
	)

	s.record(ctx, log, resp, q.TopK)
	return resp, nil
}

func (s *Service) fetch(ctx context.Context, log *zap.Logger, url string) string {
	if s.fetcher == nil {
		log.Warn("url given but no fetcher configured", zap.String("url", url))
		return ""
	}

	text, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn("failed to fetch job description", zap.String("url", url), zap.Error(err))
		return ""
	}
	log.Debug("job description fetched", zap.String("url", url), zap.Int("length", len([]rune(text))))
	return text
}

func (s *Service) explain(ctx context.Context, log *zap.Logger, resp *Response, results *ranking.Results) {
	if s.explainer == nil || results.Len() == 0 {
		return
	}

	records := make([]assessment.Record, 0, results.Len())
	for _, r := range results.Items {
		records = append(records, *r.Record)
	}

	reasons, err := s.explainer.Explain(ctx, resp.Text, records)
	if err != nil {
		log.Warn("failed to explain recommendations", zap.Error(err))
		return
	}
	for i := range resp.Recommendations {
		resp.Recommendations[i].Reason = reasons[resp.Recommendations[i].Name]
	}
}

func (s *Service) record(ctx context.Context, log *zap.Logger, resp *Response, topK int) {
	if s.history == nil || resp.ID == "" {
		return
	}

	names := make([]string, 0, len(resp.Recommendations))
	for _, r := range resp.Recommendations {
		names = append(names, r.Name)
	}

	err := s.history.Record(ctx, history.Entry{
		ID:       resp.ID,
		Query:    utils.Preview(resp.Text, historyQueryLength),
		Source:   resp.Catalog.Source,
		TopK:     topK,
		Results:  names,
		TopScore: topScore(resp),
	})
	if err != nil {
		log.Warn("failed to record request history", zap.Error(err))
	}
}

func toRecommendations(results *ranking.Results) []Recommendation {
	out := make([]Recommendation, 0, results.Len())
	for _, r := range results.Items {
		out = append(out, Recommendation{
			Name:            r.Record.Name,
			URL:             r.Record.URL,
			RemoteTesting:   r.Record.RemoteTesting,
			AdaptiveSupport: r.Record.AdaptiveSupport,
			Duration:        r.Record.Duration,
			TestType:        r.Record.TestType,
			Score:           r.Score,
		})
	}
	return out
}

func topScore(resp *Response) float64 {
	if len(resp.Recommendations) == 0 {
		return 0
	}
	return resp.Recommendations[0].Score
}
