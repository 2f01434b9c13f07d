package filtering

import (
	"context"
	"math"
	"regexp"
	"strconv"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/ranking"
)

// DurationName is the name of the duration constraint filter.
const DurationName = "duration"

var ceilingPattern = regexp.MustCompile(`(?i)(\d+)\s*minutes`)

// ParseCeiling extracts the first "<n> minutes" mention from a raw query.
func ParseCeiling(query string) (int, bool) {
	m := ceilingPattern.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Too many digits to fit an int: nothing can exceed it.
		return math.MaxInt, true
	}
	return n, true
}

// Fits reports whether a duration respects the ceiling. Unknown durations
// always fit; ranges fit only when their upper bound does.
func Fits(d assessment.Duration, ceiling int) bool {
	upper, known := d.Upper()
	if !known {
		return true
	}
	return upper <= ceiling
}

type durationFilter struct {
	toggle
	ceiling int
	found   bool
	strict  bool
}

// NewDuration creates the duration constraint filter for a raw (not
// normalised) query. When every result exceeds the ceiling the filter hands
// its input back unchanged, unless strict is set.
func NewDuration(rawQuery string, strict bool) Filter {
	ceiling, found := ParseCeiling(rawQuery)
	return &durationFilter{ceiling: ceiling, found: found, strict: strict}
}

func (f *durationFilter) Name() string { return DurationName }

func (f *durationFilter) Validate() error { return nil }

func (f *durationFilter) Apply(_ context.Context, r *ranking.Results) (*ranking.Results, Step, error) {
	initial := r.Len()
	if !f.found {
		return r, Step{Initial: initial, Left: initial}, nil
	}

	filtered, step := keep(r.Clone(), func(res ranking.Result) bool {
		return Fits(res.Record.Duration, f.ceiling)
	})

	if filtered.Len() == 0 && initial > 0 && !f.strict {
		return r, Step{Initial: initial, Left: initial, Restored: true}, nil
	}

	return filtered, step, nil
}

func (f *durationFilter) Status() Status {
	details := map[string]string{"strict": strconv.FormatBool(f.strict)}
	if f.found {
		details["max_minutes"] = strconv.Itoa(f.ceiling)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
