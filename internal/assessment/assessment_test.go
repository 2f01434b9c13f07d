package assessment

import (
	"encoding/json"
	"testing"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		kind  DurationKind
		min   int
		max   int
	}{
		{name: "single value", input: "30 minutes", kind: DurationSingle, min: 30, max: 30},
		{name: "bare number", input: "45", kind: DurationSingle, min: 45, max: 45},
		{name: "range", input: "15-25", kind: DurationRange, min: 15, max: 25},
		{name: "range with spaces and unit", input: "40 - 60 minutes", kind: DurationRange, min: 40, max: 60},
		{name: "reversed range", input: "60-40", kind: DurationRange, min: 40, max: 60},
		{name: "embedded in sentence", input: "Approximate Completion Time in minutes = 18", kind: DurationSingle, min: 18, max: 18},
		{name: "untimed", input: "Untimed", kind: DurationUnknown},
		{name: "empty", input: "", kind: DurationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := ParseDuration(tt.input)
			if d.Kind != tt.kind {
				t.Fatalf("expected kind %d, got %d", tt.kind, d.Kind)
			}
			if d.Kind == DurationUnknown {
				if _, ok := d.Upper(); ok {
					t.Fatalf("unknown duration must not report an upper bound")
				}
				return
			}
			if d.Min != tt.min || d.Max != tt.max {
				t.Fatalf("expected %d-%d, got %d-%d", tt.min, tt.max, d.Min, d.Max)
			}
		})
	}
}

func TestParseDurationValue(t *testing.T) {
	if d := ParseDurationValue(float64(20)); d.Kind != DurationSingle || d.Max != 20 {
		t.Fatalf("unexpected duration from number: %+v", d)
	}
	if d := ParseDurationValue(nil); d.Kind != DurationUnknown {
		t.Fatalf("expected unknown duration for nil, got %+v", d)
	}
	if d := ParseDurationValue(float64(-3)); d.Kind != DurationUnknown {
		t.Fatalf("expected unknown duration for negative value, got %+v", d)
	}
}

func TestDurationJSON(t *testing.T) {
	rec := Record{Name: "SQL", Duration: MinutesRange(15, 25)}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Duration.Kind != DurationRange || decoded.Duration.Min != 15 || decoded.Duration.Max != 25 {
		t.Fatalf("unexpected duration after round trip: %+v", decoded.Duration)
	}

	var fromNumber Record
	if err := json.Unmarshal([]byte(`{"name":"x","duration":40}`), &fromNumber); err != nil {
		t.Fatalf("unmarshal numeric duration: %v", err)
	}
	if fromNumber.Duration.Kind != DurationSingle || fromNumber.Duration.Max != 40 {
		t.Fatalf("unexpected numeric duration: %+v", fromNumber.Duration)
	}
}

func TestClassifyTestType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tags   Tags
		expect TestType
	}{
		{name: "no tag information", tags: nil, expect: Unknown},
		{name: "empty tag set", tags: NewTags(), expect: Other},
		{name: "cognitive wins over everything", tags: NewTags("S", "P", "C"), expect: Cognitive},
		{name: "personality wins over skill", tags: NewTags("T", "P"), expect: Personality},
		{name: "skill from S", tags: NewTags("S"), expect: SkillBased},
		{name: "skill from T", tags: NewTags("t"), expect: SkillBased},
		{name: "unrelated keys", tags: NewTags("B", "D"), expect: Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyTestType(tt.tags); got != tt.expect {
				t.Fatalf("expected %s, got %s", tt.expect, got)
			}
		})
	}
}

func TestClassifyAdaptive(t *testing.T) {
	if got := ClassifyAdaptive(NewTags("A", "K")); got != Yes {
		t.Fatalf("expected adaptive support for A tag, got %s", got)
	}
	if got := ClassifyAdaptive(NewTags("irt")); got != Yes {
		t.Fatalf("expected adaptive support for IRT tag, got %s", got)
	}
	if got := ClassifyAdaptive(NewTags("K")); got != No {
		t.Fatalf("expected no adaptive support, got %s", got)
	}
	if got := ClassifyAdaptive(nil); got != No {
		t.Fatalf("expected no adaptive support without tags, got %s", got)
	}
}

func TestParseTestType(t *testing.T) {
	for input, expect := range map[string]TestType{
		"Skill-based": SkillBased,
		"skill based": SkillBased,
		"COGNITIVE":   Cognitive,
		"Personality": Personality,
	} {
		got, ok := ParseTestType(input)
		if !ok || got != expect {
			t.Fatalf("ParseTestType(%q) = %s, %v", input, got, ok)
		}
	}

	if _, ok := ParseTestType("aptitude"); ok {
		t.Fatalf("expected unrecognized test type")
	}
}

func TestParseYesNo(t *testing.T) {
	if v, ok := ParseYesNo("yes"); !ok || v != Yes {
		t.Fatalf("expected Yes, got %s %v", v, ok)
	}
	if v, ok := ParseYesNo(false); !ok || v != No {
		t.Fatalf("expected No, got %s %v", v, ok)
	}
	if _, ok := ParseYesNo("maybe"); ok {
		t.Fatalf("expected unrecognized value")
	}
}
