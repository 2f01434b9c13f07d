// Package filtering narrows ranked recommendations with a sequence of steps.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ranking"
)

// Filter represents a single filtering step applied to ranked results.
// Steps never reorder results.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, r *ranking.Results) (*ranking.Results, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
	// Restored is set when the step removed everything and handed back its
	// input unchanged.
	Restored bool
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// toggle carries the enable/disable state shared by all filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// Runner executes filters in order.
type Runner struct {
	steps  []Filter
	logger *zap.Logger
}

// New creates a runner. A nil logger keeps the runner silent.
func New(logger *zap.Logger, steps ...Filter) *Runner {
	return &Runner{steps: steps, logger: logger}
}

// Steps returns the configured filters.
func (r *Runner) Steps() []Filter {
	return r.steps
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func (r *Runner) DisableByName(name, reason string) {
	for _, step := range r.steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run validates and applies every enabled filter sequentially. The input is
// left untouched; the returned results are a filtered copy.
func (r *Runner) Run(ctx context.Context, in *ranking.Results) (*ranking.Results, []Step, error) {
	for _, step := range r.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := in.Clone()
	report := make([]Step, 0, len(r.steps))
	for _, step := range r.steps {
		if !step.IsEnabled() {
			if r.logger != nil {
				r.logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		next, info, err := step.Apply(ctx, current)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
		info.Name = step.Name()

		if r.logger != nil {
			r.logger.Info("filter step",
				zap.String("name", info.Name),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
				zap.Bool("restored", info.Restored),
			)
		}

		report = append(report, info)
		current = next
	}

	return current, report, nil
}

// Describe returns status entries for the configured filters.
func (r *Runner) Describe() []Status {
	statuses := make([]Status, 0, len(r.steps))
	for _, step := range r.steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep applies a predicate and reports the step.
func keep(r *ranking.Results, pred func(ranking.Result) bool) (*ranking.Results, Step) {
	initial := r.Len()
	dropped := r.Keep(pred)
	return r, Step{Initial: initial, Dropped: len(dropped), Left: r.Len()}
}
