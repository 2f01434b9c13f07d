package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/recommend"
	"github.com/spigell/assessment-recommender/internal/service"
)

func testService() *service.Service {
	store := catalog.NewStore(catalog.NewSnapshot("test", []assessment.Record{
		{Name: "Java Programming Assessment", URL: "https://example.com/java", Description: "Technical assessment for Java developers", Duration: assessment.Minutes(40), TestType: assessment.SkillBased, RemoteTesting: assessment.Yes, AdaptiveSupport: assessment.No},
		{Name: "SQL Database Skills", URL: "https://example.com/sql", Description: "Assessment for database professionals writing SQL", Duration: assessment.Minutes(35), TestType: assessment.SkillBased, RemoteTesting: assessment.No, AdaptiveSupport: assessment.No},
		{Name: "Verbal Reasoning", URL: "https://example.com/verbal", Description: "Cognitive ability test of verbal reasoning", Duration: assessment.Minutes(20), TestType: assessment.Cognitive, RemoteTesting: assessment.Yes, AdaptiveSupport: assessment.Yes},
	}))
	return service.New(service.Deps{Store: store, Engine: recommend.New(recommend.DefaultOptions())})
}

func newTestServer(t *testing.T, cfg Config, rec Recommender, log *zap.Logger) *httptest.Server {
	t.Helper()
	if rec == nil {
		rec = testService()
	}
	cfg.Version = "test"
	ts := httptest.NewServer(New(cfg, rec, log).Handler())
	t.Cleanup(ts.Close)
	return ts
}

type recommendBody struct {
	Recommendations []service.Recommendation `json:"recommendations"`
}

func get(t *testing.T, url string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	resp := get(t, ts.URL+"/api/recommend?query=java+developers+with+sql&top_k=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Fatalf("expected a generated request id")
	}
	if resp.Header.Get(headerCatalogVersion) != "1" {
		t.Fatalf("unexpected catalog version header %q", resp.Header.Get(headerCatalogVersion))
	}

	var body recommendBody
	decode(t, resp, &body)
	if len(body.Recommendations) != 2 || body.Recommendations[0].Name != "Java Programming Assessment" {
		t.Fatalf("unexpected recommendations: %+v", body.Recommendations)
	}
	first := body.Recommendations[0]
	if first.URL != "https://example.com/java" || first.RemoteTesting != assessment.Yes || first.TestType != assessment.SkillBased {
		t.Fatalf("unexpected fields: %+v", first)
	}
	if first.Score <= 0 || first.Score > 1 {
		t.Fatalf("score out of range: %v", first.Score)
	}
}

func TestRecommendResponseShape(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	resp := get(t, ts.URL+"/api/recommend?query=verbal+reasoning&top_k=1", nil)
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var generic map[string][]map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	recs, ok := generic["recommendations"]
	if !ok || len(generic) != 1 || len(recs) != 1 {
		t.Fatalf("unexpected body: %s", raw)
	}
	for _, key := range []string{"name", "url", "remote_testing", "adaptive_support", "duration", "test_type", "score"} {
		if _, ok := recs[0][key]; !ok {
			t.Fatalf("missing %q in %s", key, raw)
		}
	}
	if _, ok := recs[0]["reason"]; ok {
		t.Fatalf("reason must be omitted without explanations: %s", raw)
	}
	if recs[0]["duration"] != "20 minutes" {
		t.Fatalf("unexpected duration: %v", recs[0]["duration"])
	}
}

func TestRecommendFilters(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "test type", query: "query=assessment&test_type=cognitive", want: []string{"Verbal Reasoning"}},
		{name: "remote", query: "query=assessment+sql+java&remote=no", want: []string{"SQL Database Skills"}},
		{name: "adaptive", query: "query=assessment&adaptive=yes", want: []string{"Verbal Reasoning"}},
		{name: "duration from query", query: "query=assessment+in+30+minutes", want: []string{"Verbal Reasoning"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+"/api/recommend?"+tt.query, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var body recommendBody
			decode(t, resp, &body)
			var got []string
			for _, r := range body.Recommendations {
				got = append(got, r.Name)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRecommendBadRequests(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	tests := []struct {
		name   string
		query  string
		detail string
	}{
		{name: "empty query", query: "query=+++", detail: "query is empty"},
		{name: "missing query", query: "", detail: "query is empty"},
		{name: "top_k not a number", query: "query=java&top_k=ten", detail: "top_k must be an integer"},
		{name: "zero top_k", query: "query=java+sql+verbal&top_k=0", detail: "top_k must be a positive integer"},
		{name: "negative top_k", query: "query=java&top_k=-1", detail: "top_k must be a positive integer"},
		{name: "top_k too large", query: "query=java&top_k=500", detail: "must not exceed 50"},
		{name: "unknown test type", query: "query=java&test_type=astrology", detail: "unknown test type"},
		{name: "bad remote", query: "query=java&remote=maybe", detail: "remote must be yes or no"},
		{name: "bad min score", query: "query=java&min_score=abc", detail: "min_score must be a number"},
		{name: "min score out of range", query: "query=java&min_score=2", detail: "min_score"},
		{name: "bad explain", query: "query=java&explain=perhaps", detail: "explain must be a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+"/api/recommend?"+tt.query, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
				t.Fatalf("content-type = %q", ct)
			}
			var p Problem
			decode(t, resp, &p)
			if !strings.Contains(p.Detail, tt.detail) {
				t.Fatalf("expected detail containing %q, got %q", tt.detail, p.Detail)
			}
			if p.RequestID == "" || p.RequestID != resp.Header.Get(HeaderRequestID) {
				t.Fatalf("problem must carry the request id, got %+v", p)
			}
		})
	}
}

type failingRecommender struct {
	err error
}

func (f failingRecommender) Recommend(context.Context, service.Query) (*service.Response, error) {
	return nil, f.err
}

func (f failingRecommender) Catalog() *catalog.Snapshot {
	return catalog.NewStore(nil).Snapshot()
}

func TestRecommendTopKBoundary(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	resp := get(t, ts.URL+"/api/recommend?query=java+sql+verbal&top_k=0", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("explicit top_k=0 must be rejected, got status %d", resp.StatusCode)
	}

	for _, tt := range []struct {
		query string
		want  int
	}{
		{query: "query=java+sql+verbal&top_k=1", want: 1},
		{query: "query=java+sql+verbal", want: 3},
	} {
		resp := get(t, ts.URL+"/api/recommend?"+tt.query, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.query, resp.StatusCode)
		}
		var body recommendBody
		decode(t, resp, &body)
		if len(body.Recommendations) != tt.want {
			t.Fatalf("%s: expected %d results, got %d", tt.query, tt.want, len(body.Recommendations))
		}
	}
}

func TestRecommendInternalError(t *testing.T) {
	core, observed := observer.New(zapcore.ErrorLevel)
	ts := newTestServer(t, DefaultConfig(), failingRecommender{err: errors.New("boom")}, zap.New(core))

	resp := get(t, ts.URL+"/api/recommend?query=java", map[string]string{HeaderRequestID: "abc-123"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var p Problem
	decode(t, resp, &p)
	if strings.Contains(p.Detail, "boom") {
		t.Fatalf("internal error details must not leak: %+v", p)
	}

	logged := observed.FilterMessage("recommendation failed").All()
	if len(logged) != 1 || logged[0].ContextMap()["request_id"] != "abc-123" {
		t.Fatalf("expected failure log with the incoming request id, got %+v", logged)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	resp := get(t, ts.URL+"/api/v1/health", map[string]string{HeaderRequestID: "client-id"})
	if got := resp.Header.Get(HeaderRequestID); got != "client-id" {
		t.Fatalf("expected incoming request id to be echoed, got %q", got)
	}

	resp = get(t, ts.URL+"/api/v1/health", map[string]string{HeaderRequestID: strings.Repeat("x", 500)})
	if got := resp.Header.Get(HeaderRequestID); len(got) != 36 {
		t.Fatalf("expected oversized id to be replaced by a uuid, got %q", got)
	}
}

func TestHealthAndCatalog(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	var health struct {
		Status  string         `json:"status"`
		Service string         `json:"service"`
		Version string         `json:"version"`
		Catalog map[string]any `json:"catalog"`
	}
	decode(t, get(t, ts.URL+"/api/v1/health", nil), &health)
	if health.Status != "ok" || health.Service != serviceName || health.Version != "test" {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.Catalog["records"] != float64(3) || health.Catalog["source"] != "test" {
		t.Fatalf("unexpected catalog summary: %+v", health.Catalog)
	}

	var summary struct {
		Records   int                  `json:"records"`
		TestTypes []catalog.TypeCount `json:"test_types"`
	}
	decode(t, get(t, ts.URL+"/api/v1/catalog", nil), &summary)
	if summary.Records != 3 || len(summary.TestTypes) != 2 {
		t.Fatalf("unexpected catalog: %+v", summary)
	}

	var rec assessment.Record
	decode(t, get(t, ts.URL+"/api/v1/catalog?name=verbal+reasoning", nil), &rec)
	if rec.Name != "Verbal Reasoning" || rec.Duration != assessment.Minutes(20) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	resp := get(t, ts.URL+"/api/v1/catalog?name=nothing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	resp := get(t, ts.URL+"/api/v2/nothing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestCORS(t *testing.T) {
	t.Run("allow all", func(t *testing.T) {
		ts := newTestServer(t, DefaultConfig(), nil, nil)

		resp := get(t, ts.URL+"/api/recommend?query=java", map[string]string{"Origin": "https://ui.example.com"})
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("allow-origin = %q", got)
		}

		req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/recommend", nil)
		req.Header.Set("Origin", "https://ui.example.com")
		req.Header.Set("Access-Control-Request-Method", "GET")
		pre, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("preflight failed: %v", err)
		}
		defer pre.Body.Close()
		if pre.StatusCode != http.StatusNoContent || !strings.Contains(pre.Header.Get("Access-Control-Allow-Methods"), "GET") {
			t.Fatalf("unexpected preflight: %d %v", pre.StatusCode, pre.Header)
		}
	})

	t.Run("listed origins", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CORSOrigins = []string{"https://ui.example.com"}
		ts := newTestServer(t, cfg, nil, nil)

		resp := get(t, ts.URL+"/api/v1/health", map[string]string{"Origin": "https://ui.example.com"})
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://ui.example.com" {
			t.Fatalf("allow-origin = %q", got)
		}

		resp = get(t, ts.URL+"/api/v1/health", map[string]string{"Origin": "https://evil.example.com"})
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("unlisted origin must not be allowed, got %q", got)
		}
	})
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	ts := newTestServer(t, cfg, nil, nil)

	if resp := get(t, ts.URL+"/api/recommend?query=java", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d", resp.StatusCode)
	}

	resp := get(t, ts.URL+"/api/recommend?query=java", nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	if resp := get(t, ts.URL+"/api/v1/health", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil, nil)

	get(t, ts.URL+"/api/recommend?query=java", nil)
	get(t, ts.URL+"/api/recommend?query=", nil)

	resp := get(t, ts.URL+"/metrics", nil)
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	body := string(raw)

	for _, want := range []string{
		`assessment_recommender_http_requests_total{code="200",route="GET /api/recommend"} 1`,
		`assessment_recommender_http_requests_total{code="400",route="GET /api/recommend"} 1`,
		`assessment_recommender_catalog_records{source="test"} 3`,
		`assessment_recommender_http_request_duration_seconds_count{route="GET /api/recommend"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestAccessLog(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	ts := newTestServer(t, DefaultConfig(), nil, zap.New(core))

	get(t, ts.URL+"/api/recommend?query=java", nil)
	get(t, ts.URL+"/api/v1/health", nil)

	logged := observed.FilterMessage("http request").All()
	if len(logged) != 1 {
		t.Fatalf("expected one info access log (health is debug), got %d", len(logged))
	}
	fields := logged[0].ContextMap()
	if fields["path"] != "/api/recommend" || fields["status"] != int64(200) || fields["request_id"] == "" {
		t.Fatalf("unexpected access log fields: %+v", fields)
	}
}
