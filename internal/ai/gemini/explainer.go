package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/utils"
)

const systemInstruction = "You explain search results. Reply with JSON only."

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Explainer asks Gemini for a short reason per recommended assessment.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewExplainer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Explainer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

type promptRecord struct {
	Name        string `json:"name"`
	TestType    string `json:"test_type"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Explain returns reasons keyed by assessment name. Names the model invents
// are dropped.
func (e *Explainer) Explain(ctx context.Context, query string, records []assessment.Record) (ai.Explanations, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if len(records) == 0 {
		return ai.Explanations{}, nil
	}

	payload := make([]promptRecord, 0, len(records))
	for _, r := range records {
		payload = append(payload, promptRecord{
			Name:        r.Name,
			TestType:    string(r.TestType),
			Duration:    r.Duration.String(),
			Description: r.Description,
		})
	}

	recordsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal assessments payload: %w", err)
	}

	prompt := buildPrompt(query, string(recordsJSON))

	e.logger.Debug("gemini generate content request",
		zap.Int("assessments", len(records)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	parsed, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	known := make(map[string]string, len(records))
	for _, r := range records {
		known[strings.ToLower(r.Name)] = r.Name
	}

	out := make(ai.Explanations, len(parsed))
	for name, reason := range parsed {
		if canonical, ok := known[strings.ToLower(name)]; ok && reason != "" {
			out[canonical] = reason
		}
	}
	return out, nil
}

func buildPrompt(query, recordsJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Request:\n{{QUERY}}\n\nAssessments:\n{{ASSESSMENTS_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{QUERY}}", strings.TrimSpace(query))
	prompt = strings.ReplaceAll(prompt, "{{ASSESSMENTS_JSON}}", recordsJSON)
	return prompt
}

func parseResponse(raw string) (map[string]string, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	items, ok := data["explanations"].([]any)
	if !ok {
		return nil, fmt.Errorf("parse gemini response: missing explanations list")
	}

	out := make(map[string]string, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := coerceString(entry["name"])
		if name == "" {
			continue
		}
		out[name] = coerceString(entry["reason"])
	}
	return out, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
