package template

import (
	"errors"
	"sync"
	"testing"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

func simpleTree() *zone.Tree {
	return &zone.Tree{Width: 50, Height: 50, Roots: []*zone.Zone{
		{ID: "badge", Kind: zone.KindVector, Visible: true, Opacity: 1, Brand: true,
			Props: map[zone.Property]zone.Value{zone.PropFill: zone.Color(colorspace.MustParseHex("#552583"))}},
		{ID: "title", Kind: zone.KindText, Visible: true, Opacity: 1,
			Props: map[zone.Property]zone.Value{zone.PropText: zone.Text("Lakers")}},
	}}
}

func TestNew(t *testing.T) {
	tree := simpleTree()
	tpl, err := New("card", tree, param.Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tpl.ID == "" || tpl.Version != 1 || tpl.Name != "card" {
		t.Errorf("header: %+v", tpl)
	}
	if len(tpl.Parameters) == 0 {
		t.Fatal("no parameters extracted")
	}

	// The template owns a copy of the tree
	tree.Roots[0].Props[zone.PropFill] = zone.Color(colorspace.White)
	if v, _ := tpl.Tree.Find("badge").Get(zone.PropFill); v.Color == colorspace.White {
		t.Error("caller mutation leaked into the template")
	}

	if _, err := New("x", nil, param.Options{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("nil tree: expected ErrInvalid, got %v", err)
	}
}

func TestReExtract(t *testing.T) {
	v1, err := New("card", simpleTree(), param.Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	v2, err := v1.ReExtract(simpleTree(), param.Options{})
	if err != nil {
		t.Fatalf("ReExtract failed: %v", err)
	}
	if v2.ID != v1.ID || v2.Version != 2 {
		t.Errorf("v2 header: id %s version %d", v2.ID, v2.Version)
	}
	if len(v1.Parameters) != len(v2.Parameters) {
		t.Fatalf("unchanged tree changed parameter count")
	}
	for i := range v1.Parameters {
		if v1.Parameters[i].ID != v2.Parameters[i].ID {
			t.Errorf("parameter %d id changed: %s -> %s", i, v1.Parameters[i].ID, v2.Parameters[i].ID)
		}
	}
	if v1.Version != 1 {
		t.Error("re-extraction must not touch the previous version")
	}
}

func TestTemplate_Validate(t *testing.T) {
	tpl, _ := New("card", simpleTree(), param.Options{})
	if err := tpl.Validate(); err != nil {
		t.Errorf("fresh template invalid: %v", err)
	}

	broken := *tpl
	broken.Parameters = append([]param.Parameter{}, tpl.Parameters...)
	broken.Parameters[0].Type = "gradient"
	if err := broken.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	if err := (&Template{}).Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("no tree: expected ErrInvalid, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	v1, _ := New("card", simpleTree(), param.Options{})
	v2, _ := v1.ReExtract(simpleTree(), param.Options{})

	if err := reg.Put(v2); err == nil {
		t.Error("version 2 before version 1 should fail")
	}
	if err := reg.Put(v1); err != nil {
		t.Fatalf("Put v1 failed: %v", err)
	}
	if err := reg.Put(v2); err != nil {
		t.Fatalf("Put v2 failed: %v", err)
	}

	latest, err := reg.Template(v1.ID)
	if err != nil || latest.Version != 2 {
		t.Errorf("latest: got %v, %v", latest, err)
	}
	old, err := reg.Version(v1.ID, 1)
	if err != nil || old != v1 {
		t.Errorf("version 1: got %v, %v", old, err)
	}
	if _, err := reg.Version(v1.ID, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing version: expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Template("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing template: expected ErrNotFound, got %v", err)
	}
	if n := len(reg.List()); n != 1 {
		t.Errorf("List: got %d templates, want 1", n)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tpl, err := New("card", simpleTree(), param.Options{})
			if err != nil {
				t.Errorf("New failed: %v", err)
				return
			}
			if err := reg.Put(tpl); err != nil {
				t.Errorf("Put failed: %v", err)
			}
			_, _ = reg.Template(tpl.ID)
			_ = reg.List()
		}()
	}
	wg.Wait()
	if n := len(reg.List()); n != 16 {
		t.Errorf("List: got %d, want 16", n)
	}
}
