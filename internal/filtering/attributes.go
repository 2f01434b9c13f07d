package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/ranking"
)

type testTypeFilter struct {
	toggle
	raw   []string
	types map[assessment.TestType]struct{}
}

// NewTestType keeps results whose test type is one of the given names.
// An empty list keeps everything.
func NewTestType(names ...string) Filter {
	return &testTypeFilter{raw: names}
}

func (f *testTypeFilter) Name() string { return "test_type" }

func (f *testTypeFilter) Validate() error {
	f.types = make(map[assessment.TestType]struct{}, len(f.raw))
	for _, name := range f.raw {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tt, ok := assessment.ParseTestType(name)
		if !ok {
			return fmt.Errorf("unknown test type %q", name)
		}
		f.types[tt] = struct{}{}
	}
	return nil
}

func (f *testTypeFilter) Apply(_ context.Context, r *ranking.Results) (*ranking.Results, Step, error) {
	if len(f.types) == 0 {
		return r, Step{Initial: r.Len(), Left: r.Len()}, nil
	}
	out, step := keep(r, func(res ranking.Result) bool {
		_, ok := f.types[res.Record.TestType]
		return ok
	})
	return out, step, nil
}

func (f *testTypeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"types": strings.Join(f.raw, ",")},
	}
}

type yesNoFilter struct {
	toggle
	name  string
	want  assessment.YesNo
	field func(*assessment.Record) assessment.YesNo
}

// NewRemote keeps results whose remote testing support equals want.
func NewRemote(want assessment.YesNo) Filter {
	return &yesNoFilter{
		name:  "remote",
		want:  want,
		field: func(r *assessment.Record) assessment.YesNo { return r.RemoteTesting },
	}
}

// NewAdaptive keeps results whose adaptive support equals want.
func NewAdaptive(want assessment.YesNo) Filter {
	return &yesNoFilter{
		name:  "adaptive",
		want:  want,
		field: func(r *assessment.Record) assessment.YesNo { return r.AdaptiveSupport },
	}
}

func (f *yesNoFilter) Name() string { return f.name }

func (f *yesNoFilter) Validate() error {
	if f.want != assessment.Yes && f.want != assessment.No {
		return fmt.Errorf("expected Yes or No, got %q", f.want)
	}
	return nil
}

func (f *yesNoFilter) Apply(_ context.Context, r *ranking.Results) (*ranking.Results, Step, error) {
	out, step := keep(r, func(res ranking.Result) bool {
		return f.field(res.Record) == f.want
	})
	return out, step, nil
}

func (f *yesNoFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"want": string(f.want)},
	}
}

type minScoreFilter struct {
	toggle
	threshold float64
}

// NewMinScore drops results scoring below threshold.
func NewMinScore(threshold float64) Filter {
	return &minScoreFilter{threshold: threshold}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Validate() error {
	if f.threshold < 0 || f.threshold > 1 {
		return fmt.Errorf("minimum score must be within [0, 1], got %v", f.threshold)
	}
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, r *ranking.Results) (*ranking.Results, Step, error) {
	out, step := keep(r, func(res ranking.Result) bool {
		return res.Score >= f.threshold
	})
	return out, step, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min": strconv.FormatFloat(f.threshold, 'f', -1, 64)},
	}
}
