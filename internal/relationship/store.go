// Package relationship owns the relationship tree of one view and keeps it in
// sync with the template backend.
package relationship

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-alert-relationships/internal/models"
	"github.com/mr1hm/go-alert-relationships/internal/tree"
)

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateSaving
	StateError
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Backend is the template protocol the store drives.
type Backend interface {
	LoadTemplate(ctx context.Context, template string, alerts []models.FlatAlert) (*models.LoadResponse, error)
	SaveTemplate(ctx context.Context, template string, alerts []models.FlatAlert) error
}

// Resolver looks up alert types; a miss returns nil.
type Resolver interface {
	Resolve(ctx context.Context, id string) *models.AlertTypeRecord
}

type Option func(*Store)

// WithTimeout bounds every backend call made by the store.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func withIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// Store holds the current tree, its flattened mirror and the active template.
//
// Loads replace the tree wholesale. When loads overlap, the newest one wins:
// each load takes a sequence number and a response whose number is no longer
// current is discarded with ErrStaleResponse. A save is rejected while a load
// is in flight. Nothing is retried.
type Store struct {
	backend Backend
	types   Resolver
	timeout time.Duration
	newID   func() string

	mu         sync.Mutex
	state      State
	err        error
	template   string
	root       *models.AlertNode
	mirror     []models.FlatAlert
	index      *tree.Index
	dirty      bool
	revision   uint64
	seq        uint64
	cancelLoad context.CancelFunc
}

func New(backend Backend, types Resolver, opts ...Option) *Store {
	root := models.NewRoot()
	s := &Store{
		backend: backend,
		types:   types,
		newID:   uuid.NewString,
		root:    root,
		mirror:  []models.FlatAlert{},
		index:   tree.NewIndex(root),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadTemplate asks the backend to apply template to the selected alerts and
// adopts the returned tree. A load already in flight is cancelled and its
// response, if it still arrives, is discarded. On failure the previous tree
// is kept and the store moves to StateError.
func (s *Store) LoadTemplate(ctx context.Context, template string, selected []models.FlatAlert) error {
	if template == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}

	s.mu.Lock()
	if s.state == StateSaving {
		s.mu.Unlock()
		return fmt.Errorf("%w: save in flight", ErrConflict)
	}
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.seq++
	seq := s.seq
	ctx, cancel := s.withTimeout(ctx)
	s.cancelLoad = cancel
	s.state = StateLoading
	s.mu.Unlock()
	defer cancel()

	start := time.Now()
	resp, err := s.backend.LoadTemplate(ctx, template, selected)
	templateLoadDuration.Observe(time.Since(start).Seconds())

	var (
		root   *models.AlertNode
		mirror []models.FlatAlert
	)
	if err == nil {
		root, mirror, err = s.prepare(ctx, resp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		templateLoads.WithLabelValues("stale").Inc()
		slog.Debug("discarding superseded template load", "template", template, "seq", seq, "current", s.seq)
		return ErrStaleResponse
	}
	s.cancelLoad = nil

	if err != nil {
		templateLoads.WithLabelValues("error").Inc()
		s.state = StateError
		s.err = classify(err)
		slog.Error("template load failed", "template", template, "error", s.err)
		return s.err
	}

	s.swap(template, root, mirror)
	s.dirty = false
	s.state = StateReady
	s.err = nil
	templateLoads.WithLabelValues("ok").Inc()
	slog.Info("template loaded", "template", template, "alerts", len(mirror), "total", root.TotalChildren)
	return nil
}

// prepare normalizes a backend response into a tree with fresh totals and
// its mirror. If the response carries no mirror one is derived.
func (s *Store) prepare(ctx context.Context, resp *models.LoadResponse) (*models.AlertNode, []models.FlatAlert, error) {
	if resp == nil || resp.Tree == nil {
		return nil, nil, fmt.Errorf("%w: response has no tree", ErrMalformedResponse)
	}

	root := resp.Tree
	if !root.IsContainer() {
		root = &models.AlertNode{Children: []*models.AlertNode{root}}
	}
	root = tree.Normalize(root, s.resolver(ctx))
	tree.ComputeTotals(root)

	mirror := resp.Alerts
	if mirror == nil {
		mirror = tree.Flatten(root)
	}
	return root, append([]models.FlatAlert{}, mirror...), nil
}

// BuildLocal builds the tree from alerts' own linkage without asking the
// backend and makes template active. The result is unsaved.
func (s *Store) BuildLocal(ctx context.Context, template string, alerts []models.FlatAlert) error {
	if template == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}

	root := tree.Treeify(alerts, s.resolver(ctx))
	tree.ComputeTotals(root)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoading || s.state == StateSaving {
		return fmt.Errorf("%w: %s in flight", ErrConflict, s.state)
	}

	s.swap(template, root, tree.Flatten(root))
	s.state = StateReady
	s.err = nil
	s.markDirty()
	return nil
}

// BindRelationship makes childID a child of parentID within template. The
// child keeps its own subtree and becomes the parent's last child.
func (s *Store) BindRelationship(parentID, childID, template string) error {
	if parentID == childID {
		return fmt.Errorf("%w: alert %q cannot be its own parent", ErrValidation, parentID)
	}
	if template == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoading {
		return fmt.Errorf("%w: load in flight", ErrConflict)
	}
	if s.template != "" && s.template != template {
		return fmt.Errorf("%w: template %q is not active (active: %q)", ErrValidation, template, s.template)
	}

	parent, ok := s.index.Node(parentID)
	if !ok {
		return fmt.Errorf("%w: alert %q", ErrNotFound, parentID)
	}
	child, ok := s.index.Node(childID)
	if !ok {
		return fmt.Errorf("%w: alert %q", ErrNotFound, childID)
	}
	if s.index.IsDescendant(parent, child) {
		return fmt.Errorf("%w: alert %q is below %q", ErrValidation, parentID, childID)
	}

	if old := s.index.Parent(child); old != nil {
		old.Children = remove(old.Children, child)
	}
	parent.Children = append(parent.Children, child)
	child.ParentID = parent.ID

	s.template = template
	s.rebuild()
	s.markDirty()
	slog.Debug("relationship bound", "template", template, "parent", parentID, "child", childID)
	return nil
}

// SpawnAlert creates an unattached alert of the given type and appends it to
// the tree and mirror. The returned node is a copy.
func (s *Store) SpawnAlert(ctx context.Context, alertTypeID, name string) (*models.AlertNode, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: alert name is required", ErrValidation)
	}
	if alertTypeID == "" {
		return nil, fmt.Errorf("%w: alert type is required", ErrValidation)
	}

	alertType := s.resolver(ctx)(alertTypeID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoading {
		return nil, fmt.Errorf("%w: load in flight", ErrConflict)
	}

	n := models.NewNode(models.FlatAlert{
		ID:          s.newID(),
		Name:        name,
		AlertTypeID: alertTypeID,
	})
	n.AlertType = alertType
	if alertType != nil {
		n.System = alertType.System
	}

	s.root.Children = append(s.root.Children, n)
	s.rebuild()
	s.markDirty()
	return tree.Clone(n), nil
}

// Save sends the mirror under the active template. On success the store is
// clean unless it was edited while the save was in flight; on failure the
// dirty flag is kept so the caller can retry.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateLoading || s.state == StateSaving {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: %s in flight", ErrConflict, state)
	}
	if s.template == "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: no active template", ErrValidation)
	}
	s.state = StateSaving
	template := s.template
	alerts := append([]models.FlatAlert{}, s.mirror...)
	revision := s.revision
	s.mu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err := s.backend.SaveTemplate(ctx, template, alerts)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		templateSaves.WithLabelValues("error").Inc()
		s.state = StateError
		s.err = classify(err)
		slog.Error("template save failed", "template", template, "error", s.err)
		return s.err
	}

	if s.revision == revision {
		s.dirty = false
	}
	s.state = StateReady
	s.err = nil
	templateSaves.WithLabelValues("ok").Inc()
	slog.Info("template saved", "template", template, "alerts", len(alerts))
	return nil
}

// SelectNode returns a copy of the node with the given id in the current
// tree. Ids taken from a tree that has since been replaced may no longer
// resolve.
func (s *Store) SelectNode(id string) (*models.AlertNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.index.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: alert %q", ErrNotFound, id)
	}
	return tree.Clone(n), nil
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that moved the store to StateError.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) Template() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template
}

func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Tree returns a copy of the current tree.
func (s *Store) Tree() *models.AlertNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tree.Clone(s.root)
}

// Alerts returns a copy of the flattened mirror.
func (s *Store) Alerts() []models.FlatAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FlatAlert{}, s.mirror...)
}

// Total returns the number of alerts in the current tree.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.TotalChildren
}

func (s *Store) swap(template string, root *models.AlertNode, mirror []models.FlatAlert) {
	s.template = template
	s.root = root
	s.mirror = mirror
	s.index = tree.NewIndex(root)
	s.revision++
}

// rebuild refreshes everything derived from the tree after a local edit.
func (s *Store) rebuild() {
	s.index = tree.NewIndex(s.root)
	tree.ComputeTotals(s.root)
	s.mirror = tree.Flatten(s.root)
}

func (s *Store) markDirty() {
	s.dirty = true
	s.revision++
}

func (s *Store) resolver(ctx context.Context) tree.ResolveFunc {
	if s.types == nil {
		return func(string) *models.AlertTypeRecord { return nil }
	}
	return func(id string) *models.AlertTypeRecord {
		return s.types.Resolve(ctx, id)
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func remove(nodes []*models.AlertNode, target *models.AlertNode) []*models.AlertNode {
	out := nodes[:0]
	for _, n := range nodes {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}
