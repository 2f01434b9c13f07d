package assessment

import (
	"fmt"
	"strings"
)

// YesNo is a closed two-valued attribute of an assessment.
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

// ParseYesNo converts loosely typed catalog values into a YesNo.
// The second return value is false when the value is not recognized.
func ParseYesNo(v any) (YesNo, bool) {
	switch val := v.(type) {
	case YesNo:
		return val, val == Yes || val == No
	case bool:
		if val {
			return Yes, true
		}
		return No, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "yes", "y", "true", "1":
			return Yes, true
		case "no", "n", "false", "0":
			return No, true
		}
	case float64:
		if val != 0 {
			return Yes, true
		}
		return No, true
	case int:
		if val != 0 {
			return Yes, true
		}
		return No, true
	}

	return "", false
}

// TestType is the closed classification of an assessment.
type TestType string

const (
	Cognitive   TestType = "Cognitive"
	Personality TestType = "Personality"
	SkillBased  TestType = "Skill-based"
	Other       TestType = "Other"
	Unknown     TestType = "Unknown"
)

// ParseTestType recognizes the textual forms used by catalog files.
func ParseTestType(s string) (TestType, bool) {
	key := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '_' {
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch key {
	case "cognitive":
		return Cognitive, true
	case "personality":
		return Personality, true
	case "skillbased", "skill", "skills":
		return SkillBased, true
	case "other":
		return Other, true
	case "unknown":
		return Unknown, true
	default:
		return "", false
	}
}

// Record is a single catalog assessment. Records are built once by a catalog
// source and never modified afterwards.
type Record struct {
	Name            string   `json:"name" yaml:"name"`
	URL             string   `json:"url" yaml:"url"`
	RemoteTesting   YesNo    `json:"remote_testing" yaml:"remote_testing"`
	AdaptiveSupport YesNo    `json:"adaptive_support" yaml:"adaptive_support"`
	Duration        Duration `json:"duration" yaml:"duration"`
	TestType        TestType `json:"test_type" yaml:"test_type"`
	Description     string   `json:"description" yaml:"description"`
}

// Document returns the text a record contributes to the search corpus.
func (r *Record) Document() string {
	return strings.TrimSpace(r.Name + " " + r.Description)
}

// FallbackDescription is used for records that carry no richer text.
func FallbackDescription(source, name string) string {
	return fmt.Sprintf("%s: %s", source, name)
}
