// Package scenarios drives the content pipeline end-to-end: each
// scenario assembles a real pipeline over a throwaway artifact store,
// runs it against an OpenAI-compatible endpoint, and verifies what the
// run leaves on disk.
package scenarios

import (
	"context"
	"fmt"
	"time"
)

// Scenario is one end-to-end walkthrough. The runner calls Setup,
// Execute, and Teardown in order; Execute reports its outcome through
// a Result rather than an error so partial progress stays visible.
type Scenario interface {
	Name() string
	Description() string
	Setup(ctx context.Context) error
	Execute(ctx context.Context) (*Result, error)
	Teardown(ctx context.Context) error
}

// check is one verification step within a scenario. Checks run in
// order; the first failure ends the scenario.
type check struct {
	name string
	fn   func(ctx context.Context, r *Result) error
}

// Result is a scenario's outcome. Scenarios and their checks run
// sequentially, so nothing here needs locking.
type Result struct {
	ScenarioName string        `json:"scenario_name"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`

	// Details carries scenario-specific values worth surfacing in the
	// JSON report: slugs, scores, artifact counts.
	Details map[string]any `json:"details,omitempty"`

	Errors   []string      `json:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Stages   []StageResult `json:"stages,omitempty"`
}

// StageResult records one check's outcome.
type StageResult struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// NewResult starts a Result for the named scenario.
func NewResult(name string) *Result {
	return &Result{
		ScenarioName: name,
		StartTime:    time.Now(),
		Details:      make(map[string]any),
	}
}

// runChecks executes the checks in order, each under its own timeout,
// and marks the result successful only when every one passes.
func (r *Result) runChecks(ctx context.Context, timeout time.Duration, checks []check) {
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		err := c.fn(checkCtx, r)
		cancel()
		elapsed := time.Since(start)

		if err != nil {
			r.Stages = append(r.Stages, StageResult{Name: c.name, Duration: elapsed, Error: err.Error()})
			r.Error = fmt.Sprintf("%s: %v", c.name, err)
			r.Errors = append(r.Errors, r.Error)
			return
		}
		r.Stages = append(r.Stages, StageResult{Name: c.name, Success: true, Duration: elapsed})
	}
	r.Success = true
}

// Complete stamps the end time.
func (r *Result) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// AddError records an error without ending the run.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddWarning records a non-fatal observation.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// SetDetail records a reportable value.
func (r *Result) SetDetail(key string, value any) {
	r.Details[key] = value
}
