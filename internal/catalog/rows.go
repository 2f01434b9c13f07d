package catalog

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

// DefaultSourceName prefixes generated descriptions.
const DefaultSourceName = "SHL assessment"

const (
	unknownName     = "Unknown"
	unknownURL      = "#"
	defaultDuration = "30 minutes"
)

// row accepts both full catalog records and rows produced by the catalog
// scraper ({course_id, course_name, course_url, keys}).
type row struct {
	Name            string `mapstructure:"name"`
	CourseName      string `mapstructure:"course_name"`
	URL             string `mapstructure:"url"`
	CourseURL       string `mapstructure:"course_url"`
	RemoteTesting   any    `mapstructure:"remote_testing"`
	AdaptiveSupport any    `mapstructure:"adaptive_support"`
	Duration        any    `mapstructure:"duration"`
	TestType        string `mapstructure:"test_type"`
	Description     string `mapstructure:"description"`
	Keys            any    `mapstructure:"keys"`
}

func (r *row) scraped() bool {
	return r.CourseName != "" || r.CourseURL != "" || r.Keys != nil
}

// canonicalName lets "course_name", "courseName" and "Course-Name" match.
func canonicalName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.ToLower(s))
}

func decodeRow(raw map[string]any) (*row, error) {
	var out row
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return canonicalName(mapKey) == canonicalName(fieldName)
		},
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return &out, nil
}

func tagsOf(v any) assessment.Tags {
	switch keys := v.(type) {
	case nil:
		return nil
	case []string:
		return assessment.NewTags(keys...)
	case []any:
		list := make([]string, 0, len(keys))
		for _, k := range keys {
			list = append(list, fmt.Sprint(k))
		}
		return assessment.NewTags(list...)
	case string:
		return assessment.NewTags(strings.FieldsFunc(keys, func(r rune) bool {
			return r == ',' || r == ';' || r == ' '
		})...)
	default:
		return nil
	}
}

func (r *row) record(source string) assessment.Record {
	tags := tagsOf(r.Keys)
	// Scraped rows without keys carry an empty tag set, not an unknown one.
	if r.Keys == nil && r.scraped() {
		tags = assessment.NewTags()
	}

	rec := assessment.Record{
		Name:        firstNonBlank(r.Name, r.CourseName, unknownName),
		URL:         firstNonBlank(r.URL, r.CourseURL, unknownURL),
		Description: strings.TrimSpace(r.Description),
	}

	if v, ok := assessment.ParseYesNo(r.RemoteTesting); ok {
		rec.RemoteTesting = v
	} else {
		rec.RemoteTesting = assessment.Yes
	}

	if v, ok := assessment.ParseYesNo(r.AdaptiveSupport); ok {
		rec.AdaptiveSupport = v
	} else {
		rec.AdaptiveSupport = assessment.ClassifyAdaptive(tags)
	}

	switch {
	case r.Duration != nil:
		rec.Duration = assessment.ParseDurationValue(r.Duration)
	case r.scraped():
		rec.Duration = assessment.ParseDuration(defaultDuration)
	}

	if tt, ok := assessment.ParseTestType(r.TestType); ok {
		rec.TestType = tt
	} else {
		rec.TestType = assessment.ClassifyTestType(tags)
	}

	if rec.Description == "" {
		rec.Description = assessment.FallbackDescription(source, rec.Name)
	}

	return rec
}

// Records converts loosely typed catalog rows into records. Missing values
// get the catalog defaults; source names the catalog in generated
// descriptions.
func Records(source string, rows []map[string]any) ([]assessment.Record, error) {
	if source == "" {
		source = DefaultSourceName
	}

	records := make([]assessment.Record, 0, len(rows))
	for i, raw := range rows {
		r, err := decodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, r.record(source))
	}
	return records, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
