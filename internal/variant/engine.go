package variant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/template-tools-mcp/internal/compositor"
	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/template"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// TemplateSource loads templates by id, either the latest or a pinned
// version.
type TemplateSource interface {
	Template(id string) (*template.Template, error)
	Version(id string, version int) (*template.Template, error)
}

// Renderer composites one value set. *compositor.Compositor implements it.
type Renderer interface {
	Render(ctx context.Context, tree *zone.Tree, params []param.Parameter, values param.Values) (*compositor.Render, error)
}

// Resolver supplies the parameter values for one target.
type Resolver func(ctx context.Context, target string) (param.Values, error)

// DefaultWorkers bounds concurrent renders when Options.Workers is unset.
const DefaultWorkers = 4

// Options configures an Engine.
type Options struct {
	Workers int

	// TargetTimeout caps resolve plus render for one target. Zero disables
	// it.
	TargetTimeout time.Duration

	Logger zerolog.Logger
}

// Engine runs batch variant jobs in the background.
type Engine struct {
	templates TemplateSource
	renderer  Renderer
	opts      Options

	mu    sync.Mutex
	jobs  map[string]*record
	order []string
}

// NewEngine creates an Engine.
func NewEngine(templates TemplateSource, renderer Renderer, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Engine{
		templates: templates,
		renderer:  renderer,
		opts:      opts,
		jobs:      make(map[string]*record),
	}
}

// Submit starts a job rendering templateID once per target and returns its
// id immediately. ctx only scopes the submission; the job keeps running
// after it is cancelled and is stopped with Cancel.
//
// A target whose resolver fails, panics or times out, or whose render
// fails, is recorded as an Err result and does not affect other targets.
// Template load or validation failure fails the whole job.
func (e *Engine) Submit(ctx context.Context, templateID string, targets []string, resolve Resolver) (string, error) {
	return e.SubmitVersion(ctx, templateID, 0, targets, resolve)
}

// SubmitVersion is Submit pinned to one template version, so values checked
// against that version's parameters are rendered against the same list.
// A version below 1 renders the latest version at the time the job starts.
func (e *Engine) SubmitVersion(ctx context.Context, templateID string, version int, targets []string, resolve Resolver) (string, error) {
	if resolve == nil {
		return "", ErrNoResolver
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t] {
			return "", fmt.Errorf("%w: %q", ErrDuplicateTarget, t)
		}
		seen[t] = true
	}

	rec := &record{
		job: Job{
			ID:              uuid.NewString(),
			TemplateID:      templateID,
			TemplateVersion: max(version, 0),
			Targets:         slices.Clone(targets),
			Status:          StatusPending,
			CreatedAt:       time.Now().UTC(),
		},
		results: make([]*Result, len(targets)),
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	e.jobs[rec.job.ID] = rec
	e.order = append(e.order, rec.job.ID)
	e.mu.Unlock()

	e.opts.Logger.Info().
		Str("job_id", rec.job.ID).
		Str("template_id", templateID).
		Int("targets", len(targets)).
		Msg("job submitted")

	go e.run(context.WithoutCancel(ctx), rec, resolve)
	return rec.job.ID, nil
}

func (e *Engine) run(ctx context.Context, rec *record, resolve Resolver) {
	log := e.opts.Logger.With().Str("job_id", rec.job.ID).Logger()
	e.transition(rec, StatusRunning, nil)

	e.mu.Lock()
	pinned := rec.job.TemplateVersion
	e.mu.Unlock()

	var tpl *template.Template
	var err error
	if pinned > 0 {
		tpl, err = e.templates.Version(rec.job.TemplateID, pinned)
	} else {
		tpl, err = e.templates.Template(rec.job.TemplateID)
	}
	if err == nil {
		err = tpl.Validate()
	}
	if err != nil {
		e.transition(rec, StatusFailed, fmt.Errorf("%w: %w", ErrPipeline, err))
		return
	}
	e.mu.Lock()
	rec.job.TemplateVersion = tpl.Version
	e.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, target := range rec.job.Targets {
		if e.cancelRequested(rec) {
			break
		}
		i, target := i, target
		g.Go(func() error {
			// A slot may free up only after Cancel was called.
			if e.cancelRequested(rec) {
				return nil
			}
			res, abandoned := e.target(ctx, tpl, target, resolve)
			if res.Err != nil {
				log.Warn().Err(res.Err).Str("target", target).Msg("target failed")
			}
			e.record(rec, i, res)
			// A timed-out attempt keeps the slot until it returns.
			if abandoned != nil {
				<-abandoned
			}
			return nil
		})
	}
	_ = g.Wait()

	e.transition(rec, StatusCompleted, nil)
}

// target resolves and renders one target, converting panics and the
// optional timeout into an Err result. On timeout the attempt keeps running
// and the returned channel is closed once it has returned.
func (e *Engine) target(ctx context.Context, tpl *template.Template, target string, resolve Resolver) (*Result, <-chan struct{}) {
	start := time.Now()
	res := &Result{Target: target}

	type outcome struct {
		r   *compositor.Render
		err error
	}
	attempt := func(ctx context.Context) (out outcome) {
		defer func() {
			if p := recover(); p != nil {
				out = outcome{err: fmt.Errorf("target %s: panic: %v", target, p)}
			}
		}()
		values, err := resolve(ctx, target)
		if err != nil {
			return outcome{err: fmt.Errorf("resolve %s: %w", target, err)}
		}
		r, err := e.renderer.Render(ctx, tpl.Tree, tpl.Parameters, values)
		return outcome{r: r, err: err}
	}

	var out outcome
	var abandoned chan struct{}
	if e.opts.TargetTimeout > 0 {
		tctx, cancel := context.WithTimeout(ctx, e.opts.TargetTimeout)
		defer cancel()
		ch := make(chan outcome, 1)
		finished := make(chan struct{})
		go func() {
			defer close(finished)
			ch <- attempt(tctx)
		}()
		select {
		case out = <-ch:
		case <-tctx.Done():
			out = outcome{err: fmt.Errorf("%w after %s", ErrTargetTimeout, e.opts.TargetTimeout)}
			abandoned = finished
		}
		if out.err != nil && !errors.Is(out.err, ErrTargetTimeout) && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			out.err = fmt.Errorf("%w: %w", ErrTargetTimeout, out.err)
		}
	} else {
		out = attempt(ctx)
	}

	res.Duration = time.Since(start)
	if out.r != nil {
		res.Warnings = out.r.Warnings
	}
	if out.err != nil {
		res.Status = ResultErr
		res.Err = out.err
		res.Reason = out.err.Error()
		return res, abandoned
	}
	res.Status = ResultOK
	res.Scene = out.r.Scene
	res.PNG = out.r.PNG
	return res, nil
}

func (e *Engine) record(rec *record, i int, res *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec.results[i] = res
	rec.completed++
	rec.job.Progress = float64(rec.completed) / float64(len(rec.job.Targets))
}

func (e *Engine) cancelRequested(rec *record) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return rec.cancel
}

func (e *Engine) transition(rec *record, s Status, err error) {
	e.mu.Lock()
	if !rec.setStatus(s) {
		e.mu.Unlock()
		return
	}
	if err != nil {
		rec.job.Err = err
		rec.job.Error = err.Error()
	}
	if s == StatusCompleted && len(rec.job.Targets) == 0 {
		rec.job.Progress = 1
	}
	terminal := s.Terminal()
	if terminal {
		rec.job.FinishedAt = time.Now().UTC()
	}
	completed, cancelled := rec.completed, rec.cancel
	e.mu.Unlock()

	ev := e.opts.Logger.Info()
	if s == StatusFailed {
		ev = e.opts.Logger.Error().Err(err)
	}
	ev.Str("job_id", rec.job.ID).
		Str("status", string(s)).
		Int("completed", completed).
		Bool("cancelled", cancelled).
		Msg("job transition")

	if terminal {
		close(rec.done)
	}
}

// Job returns a snapshot of a job.
func (e *Engine) Job(id string) (*Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return rec.snapshot(), nil
}

// Wait blocks until the job is Completed or Failed, or ctx is done.
func (e *Engine) Wait(ctx context.Context, id string) (*Job, error) {
	e.mu.Lock()
	rec, ok := e.jobs[id]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	select {
	case <-rec.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e.Job(id)
}

// Cancel asks a job to stop dispatching targets. Renders already in flight
// finish, and the job completes with the processed subset. Cancelling a
// finished job does nothing.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if rec.job.Status.Terminal() {
		return nil
	}
	rec.cancel = true
	rec.job.Cancelled = true
	return nil
}

// List returns snapshots of all jobs in submission order.
func (e *Engine) List() []*Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Job, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.jobs[id].snapshot())
	}
	return out
}
