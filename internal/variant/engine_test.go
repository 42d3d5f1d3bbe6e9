package variant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/compositor"
	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/template"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

func cardTemplate(t *testing.T) (*template.Registry, *template.Template) {
	t.Helper()
	tree := &zone.Tree{Width: 20, Height: 20, Background: colorspace.White, Roots: []*zone.Zone{
		{ID: "badge", Name: "Team Badge", Kind: zone.KindVector, Visible: true, Opacity: 1, Brand: true,
			Bounds: zone.Bounds{Width: 20, Height: 20},
			Props:  map[zone.Property]zone.Value{zone.PropFill: zone.Color(colorspace.MustParseHex("#552583"))}},
	}}
	tpl, err := template.New("card", tree, param.Options{})
	if err != nil {
		t.Fatalf("template.New failed: %v", err)
	}
	reg := template.NewRegistry()
	if err := reg.Put(tpl); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	return reg, tpl
}

func teamColors(_ context.Context, target string) (param.Values, error) {
	colors := map[string]string{"lakers": "#552583", "celtics": "#007A33", "bulls": "#CE1141", "heat": "#98002E"}
	hex, ok := colors[target]
	if !ok {
		return nil, fmt.Errorf("no brand for %s", target)
	}
	return param.Values{param.TeamPrimaryColor: zone.Color(colorspace.MustParseHex(hex))}, nil
}

func wait(t *testing.T, e *Engine, id string) *Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	j, err := e.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return j
}

func TestEngine_Batch(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{Workers: 2})

	targets := []string{"lakers", "celtics", "bulls", "heat"}
	id, err := e.Submit(context.Background(), tpl.ID, targets, teamColors)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	j := wait(t, e, id)

	if j.Status != StatusCompleted || j.Progress != 1 {
		t.Errorf("job: status %s progress %v", j.Status, j.Progress)
	}
	if j.TemplateVersion != 1 {
		t.Errorf("template version: got %d", j.TemplateVersion)
	}
	if len(j.Results) != len(targets) {
		t.Fatalf("results: got %d, want %d", len(j.Results), len(targets))
	}
	for i, r := range j.Results {
		if r.Target != targets[i] {
			t.Errorf("result %d: got %s, want %s", i, r.Target, targets[i])
		}
		if r.Status != ResultOK || len(r.PNG) == 0 {
			t.Errorf("%s: status %s, %d PNG bytes, reason %q", r.Target, r.Status, len(r.PNG), r.Reason)
		}
	}

	// Each variant carries its own brand color
	celtics, _ := j.Result("celtics")
	if got := celtics.Scene.Layers[0].Properties[zone.PropFill].Color.Hex(); got != "#007A33" {
		t.Errorf("celtics fill: got %s", got)
	}
}

func TestEngine_FailureIsolation(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{Workers: 3})

	tests := []struct {
		name    string
		resolve Resolver
	}{
		{"error", teamColors},
		{"panic", func(ctx context.Context, target string) (param.Values, error) {
			if target == "unknown" {
				panic("brand store exploded")
			}
			return teamColors(ctx, target)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := []string{"lakers", "unknown", "bulls", "heat"}
			id, err := e.Submit(context.Background(), tpl.ID, targets, tt.resolve)
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			j := wait(t, e, id)

			if j.Status != StatusCompleted {
				t.Fatalf("status: got %s (%s)", j.Status, j.Error)
			}
			if len(j.Results) != len(targets) {
				t.Fatalf("results: got %d", len(j.Results))
			}
			s := j.Summary()
			if s.Succeeded != 3 || len(s.Failed) != 1 || s.Failed[0].Target != "unknown" {
				t.Errorf("summary: %+v", s)
			}
			if s.Failed[0].Reason == "" {
				t.Error("failed target has no reason")
			}
		})
	}
}

func TestEngine_SubmissionOrder(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{Workers: 4})

	// Earlier targets finish later
	targets := []string{"lakers", "celtics", "bulls", "heat"}
	delay := map[string]time.Duration{"lakers": 60 * time.Millisecond, "celtics": 40 * time.Millisecond, "bulls": 20 * time.Millisecond}
	slow := func(ctx context.Context, target string) (param.Values, error) {
		time.Sleep(delay[target])
		return teamColors(ctx, target)
	}
	id, err := e.Submit(context.Background(), tpl.ID, targets, slow)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	j := wait(t, e, id)
	for i, r := range j.Results {
		if r.Target != targets[i] {
			t.Errorf("result %d: got %s, want %s", i, r.Target, targets[i])
		}
	}
}

func TestEngine_BoundedConcurrency(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{Workers: 2})

	var inFlight, peak atomic.Int32
	resolve := func(ctx context.Context, target string) (param.Values, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return param.Values{}, nil
	}
	targets := make([]string, 10)
	for i := range targets {
		targets[i] = fmt.Sprintf("t%d", i)
	}
	id, _ := e.Submit(context.Background(), tpl.ID, targets, resolve)
	wait(t, e, id)
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency %d exceeds 2 workers", p)
	}
}

func TestEngine_Cancel(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{Workers: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	resolve := func(ctx context.Context, target string) (param.Values, error) {
		if target == "lakers" {
			once.Do(func() { close(started) })
			<-release
		}
		return teamColors(ctx, target)
	}

	id, err := e.Submit(context.Background(), tpl.ID, []string{"lakers", "celtics", "bulls", "heat"}, resolve)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	<-started
	if err := e.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(release)
	j := wait(t, e, id)

	if j.Status != StatusCompleted || !j.Cancelled {
		t.Errorf("status %s cancelled %v", j.Status, j.Cancelled)
	}
	// The in-flight target finishes; nothing else starts
	if len(j.Results) != 1 || j.Results[0].Target != "lakers" || j.Results[0].Status != ResultOK {
		t.Errorf("results: %+v", j.Results)
	}
	if j.Progress != 0.25 {
		t.Errorf("progress: got %v", j.Progress)
	}

	if err := e.Cancel(id); err != nil {
		t.Errorf("cancelling a finished job: %v", err)
	}
	if err := e.Cancel("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

type brokenSource struct{ tpl *template.Template }

func (b brokenSource) Template(id string) (*template.Template, error) {
	if b.tpl == nil {
		return nil, fmt.Errorf("%w: %s", template.ErrNotFound, id)
	}
	return b.tpl, nil
}

func (b brokenSource) Version(id string, _ int) (*template.Template, error) {
	return b.Template(id)
}

func TestEngine_PipelineFailure(t *testing.T) {
	_, tpl := cardTemplate(t)
	invalid := *tpl
	invalid.Parameters = append([]param.Parameter{}, tpl.Parameters...)
	invalid.Parameters[0].Type = "gradient"

	tests := []struct {
		name   string
		source TemplateSource
	}{
		{"missing template", brokenSource{}},
		{"invalid template", brokenSource{tpl: &invalid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			resolve := func(ctx context.Context, target string) (param.Values, error) {
				calls.Add(1)
				return nil, nil
			}
			e := NewEngine(tt.source, compositor.New(compositor.Options{}), Options{})
			id, err := e.Submit(context.Background(), tpl.ID, []string{"lakers", "bulls"}, resolve)
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			j := wait(t, e, id)
			if j.Status != StatusFailed || !errors.Is(j.Err, ErrPipeline) {
				t.Errorf("status %s err %v", j.Status, j.Err)
			}
			if calls.Load() != 0 || len(j.Results) != 0 {
				t.Error("targets attempted after pipeline failure")
			}
		})
	}
}

func TestEngine_Timeout(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{Workers: 2, TargetTimeout: 20 * time.Millisecond})

	resolve := func(ctx context.Context, target string) (param.Values, error) {
		if target == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return param.Values{}, nil
	}
	id, _ := e.Submit(context.Background(), tpl.ID, []string{"fast", "slow"}, resolve)
	j := wait(t, e, id)

	slow, _ := j.Result("slow")
	if slow.Status != ResultErr || !errors.Is(slow.Err, ErrTargetTimeout) {
		t.Errorf("slow: status %s err %v", slow.Status, slow.Err)
	}
	if fast, _ := j.Result("fast"); fast.Status != ResultOK {
		t.Errorf("fast: %s %s", fast.Status, fast.Reason)
	}
	if j.Status != StatusCompleted {
		t.Errorf("timeout must not fail the job: %s", j.Status)
	}
}

// stubbornRenderer ignores ctx and tracks how many renders overlap.
type stubbornRenderer struct {
	delay          time.Duration
	inFlight, peak atomic.Int32
}

func (r *stubbornRenderer) Render(_ context.Context, tree *zone.Tree, _ []param.Parameter, _ param.Values) (*compositor.Render, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(r.delay)
	return &compositor.Render{Scene: &compositor.Scene{Width: tree.Width, Height: tree.Height}}, nil
}

func TestEngine_TimeoutKeepsWorkerLimit(t *testing.T) {
	reg, tpl := cardTemplate(t)
	r := &stubbornRenderer{delay: 60 * time.Millisecond}
	e := NewEngine(reg, r, Options{Workers: 1, TargetTimeout: 5 * time.Millisecond})

	targets := []string{"lakers", "celtics", "bulls", "heat"}
	id, err := e.Submit(context.Background(), tpl.ID, targets, func(context.Context, string) (param.Values, error) {
		return param.Values{}, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	j := wait(t, e, id)

	if p := r.peak.Load(); p > 1 {
		t.Errorf("peak concurrent renders %d exceeds 1 worker", p)
	}
	if len(j.Results) != len(targets) {
		t.Fatalf("results: got %d", len(j.Results))
	}
	for _, res := range j.Results {
		if !errors.Is(res.Err, ErrTargetTimeout) {
			t.Errorf("%s: got %v, want timeout", res.Target, res.Err)
		}
	}
}

func TestEngine_PinnedVersion(t *testing.T) {
	reg, v1 := cardTemplate(t)
	tree := v1.Tree.Clone()
	tree.Width, tree.Height = 40, 40
	v2, err := v1.ReExtract(tree, param.Options{})
	if err != nil {
		t.Fatalf("ReExtract failed: %v", err)
	}
	if err := reg.Put(v2); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{})
	tests := []struct {
		name        string
		version     int
		wantVersion int
		wantWidth   int
	}{
		{"pinned", 1, 1, 20},
		{"latest", 0, 2, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := e.SubmitVersion(context.Background(), v1.ID, tt.version, []string{"lakers"}, teamColors)
			if err != nil {
				t.Fatalf("SubmitVersion failed: %v", err)
			}
			j := wait(t, e, id)
			if j.TemplateVersion != tt.wantVersion {
				t.Errorf("version: got %d, want %d", j.TemplateVersion, tt.wantVersion)
			}
			res, _ := j.Result("lakers")
			if res.Status != ResultOK || res.Scene.Width != tt.wantWidth {
				t.Errorf("result: %s %q", res.Status, res.Reason)
			}
		})
	}

	id, err := e.SubmitVersion(context.Background(), v1.ID, 9, []string{"lakers"}, teamColors)
	if err != nil {
		t.Fatalf("SubmitVersion failed: %v", err)
	}
	if j := wait(t, e, id); j.Status != StatusFailed || !errors.Is(j.Err, template.ErrNotFound) {
		t.Errorf("missing version: status %s err %v", j.Status, j.Err)
	}
}

func TestEngine_SubmitValidation(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{})

	if _, err := e.Submit(context.Background(), tpl.ID, []string{"a", "b", "a"}, teamColors); !errors.Is(err, ErrDuplicateTarget) {
		t.Errorf("expected ErrDuplicateTarget, got %v", err)
	}
	if _, err := e.Submit(context.Background(), tpl.ID, []string{"a"}, nil); !errors.Is(err, ErrNoResolver) {
		t.Errorf("expected ErrNoResolver, got %v", err)
	}
	if _, err := e.Job("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestEngine_EmptyTargets(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{})
	id, err := e.Submit(context.Background(), tpl.ID, nil, teamColors)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	j := wait(t, e, id)
	if j.Status != StatusCompleted || j.Progress != 1 || len(j.Results) != 0 {
		t.Errorf("empty job: %+v", j)
	}
}

func TestEngine_List(t *testing.T) {
	reg, tpl := cardTemplate(t)
	e := NewEngine(reg, compositor.New(compositor.Options{}), Options{})
	first, _ := e.Submit(context.Background(), tpl.ID, []string{"lakers"}, teamColors)
	second, _ := e.Submit(context.Background(), tpl.ID, []string{"bulls"}, teamColors)
	wait(t, e, first)
	wait(t, e, second)

	jobs := e.List()
	if len(jobs) != 2 || jobs[0].ID != first || jobs[1].ID != second {
		t.Errorf("List order: %v", jobs)
	}
	if !strings.Contains(jobs[0].TemplateID, tpl.ID) {
		t.Errorf("template id: %s", jobs[0].TemplateID)
	}
}

func TestRecord_StatusMonotonic(t *testing.T) {
	r := &record{job: Job{Status: StatusPending}}
	steps := []struct {
		to   Status
		want bool
	}{
		{StatusRunning, true},
		{StatusPending, false},
		{StatusCompleted, true},
		{StatusRunning, false},
		{StatusFailed, false},
	}
	for _, s := range steps {
		if got := r.setStatus(s.to); got != s.want {
			t.Errorf("-> %s: got %v, want %v", s.to, got, s.want)
		}
	}
	if r.job.Status != StatusCompleted {
		t.Errorf("final status: %s", r.job.Status)
	}
}
