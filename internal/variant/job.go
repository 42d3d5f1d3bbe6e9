package variant

import (
	"errors"
	"slices"
	"time"

	"github.com/ironsheep/template-tools-mcp/internal/compositor"
)

// Status is the lifecycle state of a job. Transitions only move forward.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	}
	return 2
}

// Terminal reports whether s is Completed or Failed.
func (s Status) Terminal() bool { return s.rank() == 2 }

var (
	// ErrPipeline is a job-level failure: the template could not be loaded
	// or is invalid, so no target was attempted.
	ErrPipeline = errors.New("pipeline failure")

	// ErrTargetTimeout is recorded for a target whose resolve and render
	// ran past the configured per-target timeout.
	ErrTargetTimeout = errors.New("target timed out")

	ErrJobNotFound     = errors.New("job not found")
	ErrDuplicateTarget = errors.New("duplicate target")
	ErrNoResolver      = errors.New("no value resolver")
)

// ResultStatus is the outcome of one target.
type ResultStatus string

const (
	ResultOK  ResultStatus = "ok"
	ResultErr ResultStatus = "err"
)

// Result is the rendered variant for one target, or the reason it failed.
type Result struct {
	Target   string                      `json:"target"`
	Status   ResultStatus                `json:"status"`
	Reason   string                      `json:"reason,omitempty"`
	Scene    *compositor.Scene           `json:"scene,omitempty"`
	Warnings []compositor.BindingWarning `json:"warnings,omitempty"`
	Duration time.Duration               `json:"duration"`

	PNG []byte `json:"-"`
	Err error  `json:"-"`
}

// Job is a snapshot of a batch render.
type Job struct {
	ID              string    `json:"id"`
	TemplateID      string    `json:"templateId"`
	TemplateVersion int       `json:"templateVersion,omitempty"`
	Targets         []string  `json:"targets"`
	Status          Status    `json:"status"`
	Progress        float64   `json:"progress"`
	Cancelled       bool      `json:"cancelled,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	FinishedAt      time.Time `json:"finishedAt,omitzero"`

	// Results holds every attempted target in submission order.
	Results []Result `json:"results"`

	Err error `json:"-"`
}

// Result returns the outcome for one target.
func (j *Job) Result(target string) (Result, bool) {
	for _, r := range j.Results {
		if r.Target == target {
			return r, true
		}
	}
	return Result{}, false
}

// FailedTarget names a target and why it failed.
type FailedTarget struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Summary counts the outcomes of a job.
type Summary struct {
	Total     int            `json:"total"`
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    []FailedTarget `json:"failed"`
}

// Summary reports success count and every failed target with its reason.
func (j *Job) Summary() Summary {
	s := Summary{Total: len(j.Targets), Attempted: len(j.Results), Failed: []FailedTarget{}}
	for _, r := range j.Results {
		if r.Status == ResultOK {
			s.Succeeded++
			continue
		}
		s.Failed = append(s.Failed, FailedTarget{Target: r.Target, Reason: r.Reason})
	}
	return s
}

// record is the engine-owned mutable job. Every field is guarded by
// Engine.mu except done, which is closed once on reaching a terminal state.
type record struct {
	job       Job
	results   []*Result
	completed int
	cancel    bool
	done      chan struct{}
}

func (r *record) snapshot() *Job {
	j := r.job
	j.Targets = slices.Clone(r.job.Targets)
	j.Results = make([]Result, 0, r.completed)
	for _, res := range r.results {
		if res != nil {
			j.Results = append(j.Results, *res)
		}
	}
	return &j
}

// setStatus refuses backward transitions.
func (r *record) setStatus(s Status) bool {
	if r.job.Status.Terminal() || s.rank() < r.job.Status.rank() {
		return false
	}
	r.job.Status = s
	return true
}
