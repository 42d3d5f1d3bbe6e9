// Package template holds published templates: a zone tree and its
// parameter list, immutable once created.
//
// Changing a template means re-extracting, which publishes a new version
// under the same id. Earlier versions stay readable so stored variant
// values can be checked against the version they were made for.
package template

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

var (
	// ErrNotFound is returned for unknown template ids or versions.
	ErrNotFound = errors.New("template not found")

	// ErrInvalid wraps validation failures of a template's parameters.
	ErrInvalid = errors.New("invalid template")
)

// Template is one published version. Callers must not mutate Tree or
// Parameters; compositing works on clones.
type Template struct {
	ID         string            `json:"id"`
	Version    int               `json:"version"`
	Name       string            `json:"name"`
	Tree       *zone.Tree        `json:"tree"`
	Parameters []param.Parameter `json:"parameters"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// New extracts parameters from tree and returns version 1 under a fresh id.
// The tree is cloned, so later edits by the caller do not leak in.
func New(name string, tree *zone.Tree, opts param.Options) (*Template, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: nil tree", ErrInvalid)
	}
	return build(uuid.NewString(), 1, name, tree.Clone(), opts)
}

// ReExtract publishes the next version from a new tree. Parameter ids are a
// function of zone ids, so unchanged zones keep their parameter ids.
func (t *Template) ReExtract(tree *zone.Tree, opts param.Options) (*Template, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: nil tree", ErrInvalid)
	}
	return build(t.ID, t.Version+1, t.Name, tree.Clone(), opts)
}

func build(id string, version int, name string, tree *zone.Tree, opts param.Options) (*Template, error) {
	params := param.Extract(tree, opts)
	if err := param.Validate(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &Template{
		ID:         id,
		Version:    version,
		Name:       name,
		Tree:       tree,
		Parameters: params,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Validate re-checks the parameter list; a template loaded from elsewhere
// may not have come through New.
func (t *Template) Validate() error {
	if t.Tree == nil {
		return fmt.Errorf("%w: no zone tree", ErrInvalid)
	}
	if err := param.Validate(t.Parameters); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Registry is an in-memory, concurrency-safe template store keeping every
// version.
type Registry struct {
	mu       sync.RWMutex
	versions map[string][]*Template
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{versions: make(map[string][]*Template)}
}

// Put stores a template version. Versions must be added in order.
func (r *Registry) Put(t *Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vs := r.versions[t.ID]
	if want := len(vs) + 1; t.Version != want {
		return fmt.Errorf("template %s: version %d out of order, want %d", t.ID, t.Version, want)
	}
	r.versions[t.ID] = append(vs, t)
	return nil
}

// Template returns the latest version.
func (r *Registry) Template(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs := r.versions[id]
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return vs[len(vs)-1], nil
}

// Version returns a specific version.
func (r *Registry) Version(id string, version int) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs := r.versions[id]
	if version < 1 || version > len(vs) {
		return nil, fmt.Errorf("%w: %s@%d", ErrNotFound, id, version)
	}
	return vs[version-1], nil
}

// List returns the latest version of every template, unordered.
func (r *Registry) List() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Template, 0, len(r.versions))
	for _, vs := range r.versions {
		out = append(out, vs[len(vs)-1])
	}
	return out
}
