package assessment

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DurationKind tells how much is known about an assessment duration.
type DurationKind int

const (
	DurationUnknown DurationKind = iota
	DurationSingle
	DurationRange
)

// durationPattern picks the first number, or the first "lo-hi" pair, in free text
// such as "30 minutes", "20-30 minutes" or "Approximate Completion Time in minutes = 25".
var durationPattern = regexp.MustCompile(`(\d+)(?:\s*[-–]\s*(\d+))?`)

// Duration is the parsed form of a catalog duration.
type Duration struct {
	Kind DurationKind
	Min  int
	Max  int
	// Text is the catalog text the duration was parsed from.
	Text string
}

// Minutes builds a single-valued duration.
func Minutes(m int) Duration {
	return Duration{Kind: DurationSingle, Min: m, Max: m, Text: fmt.Sprintf("%d minutes", m)}
}

// MinutesRange builds a range duration.
func MinutesRange(lo, hi int) Duration {
	return Duration{Kind: DurationRange, Min: lo, Max: hi, Text: fmt.Sprintf("%d-%d minutes", lo, hi)}
}

// ParseDuration parses catalog duration text. Text without a usable number
// yields an unknown duration that still remembers the original text.
func ParseDuration(text string) Duration {
	text = strings.TrimSpace(text)
	d := Duration{Text: text}

	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return d
	}

	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return d
	}

	if m[2] == "" {
		d.Kind = DurationSingle
		d.Min, d.Max = lo, lo
		return d
	}

	hi, err := strconv.Atoi(m[2])
	if err != nil {
		return d
	}
	if hi < lo {
		lo, hi = hi, lo
	}

	d.Kind = DurationRange
	d.Min, d.Max = lo, hi
	return d
}

// ParseDurationValue accepts the loosely typed values found in catalog files:
// numbers are minutes, strings are parsed as text, anything else is unknown.
func ParseDurationValue(v any) Duration {
	switch val := v.(type) {
	case nil:
		return Duration{}
	case Duration:
		return val
	case string:
		return ParseDuration(val)
	case int:
		if val < 0 {
			return Duration{}
		}
		return Minutes(val)
	case int64:
		if val < 0 || val > math.MaxInt32 {
			return Duration{}
		}
		return Minutes(int(val))
	case float64:
		if val < 0 || val > math.MaxInt32 || math.IsNaN(val) {
			return Duration{}
		}
		return Minutes(int(val))
	default:
		return ParseDuration(fmt.Sprintf("%v", v))
	}
}

// Upper returns the longest time the assessment may take.
func (d Duration) Upper() (int, bool) {
	if d.Kind == DurationUnknown {
		return 0, false
	}
	return d.Max, true
}

func (d Duration) String() string {
	if d.Text != "" {
		return d.Text
	}
	switch d.Kind {
	case DurationSingle:
		return fmt.Sprintf("%d minutes", d.Min)
	case DurationRange:
		return fmt.Sprintf("%d-%d minutes", d.Min, d.Max)
	default:
		return ""
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = ParseDurationValue(raw)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*d = ParseDurationValue(raw)
	return nil
}
