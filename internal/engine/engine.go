// Package engine implements the planar cohort placement engine: three
// independent perceptual-map segments sharing one cohort pool, a drag
// interaction state machine, selection toggling, and the winner-selection
// sub-flow. Mutations apply optimistically to local state, persist through
// the sync adapter, and roll back to a pre-mutation snapshot when
// persistence fails.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"placementcore/internal/docsync"
	"placementcore/pkg/domain"
	"placementcore/pkg/planar"
)

// Engine owns the in-memory segment state for one project. All exported
// methods are safe for concurrent use; in-memory mutation happens under a
// single lock so there is only ever one logical writer.
type Engine struct {
	mu        sync.Mutex
	projectID string
	sync      *docsync.Adapter
	notify    domain.Notifier
	metrics   MetricsRecorder
	random    func() float64
	now       func() time.Time

	cohorts   []domain.Cohort
	segments  [domain.SegmentCount]domain.Segment
	activeIdx int
	drag      dragState
	winners   domain.WinnerSelection
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier wires the toast/notification collaborator.
func WithNotifier(n domain.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notify = n
		}
	}
}

// WithMetrics wires an operation metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithRandom overrides the uniform [0,1) source used for locally assigned
// placements. Intended for deterministic tests.
func WithRandom(random func() float64) Option {
	return func(e *Engine) {
		if random != nil {
			e.random = random
		}
	}
}

// New constructs an engine for the given project. The project id is
// injected once here and passed to every adapter call; the engine never
// reads it from ambient state.
func New(projectID string, adapter *docsync.Adapter, opts ...Option) (*Engine, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("sync adapter is required")
	}
	e := &Engine{
		projectID: projectID,
		sync:      adapter,
		notify:    domain.NopNotifier{},
		metrics:   NopMetricsRecorder{},
		random:    rand.Float64,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for i, label := range domain.DefaultSegmentLabels {
		e.segments[i] = domain.NewSegment(label)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) observe(ctx context.Context, op string, start time.Time, err error) {
	e.metrics.Observe(ctx, op, err == nil, e.now().Sub(start))
}

// Load hydrates cohorts, segments, and the winner selection from storage.
// ErrNotFound propagates untouched so callers can trigger the external
// generation flow.
func (e *Engine) Load(ctx context.Context) (err error) {
	start := e.now()
	defer func() { e.observe(ctx, "load_all", start, err) }()

	ws, err := e.sync.LoadAll(ctx, e.projectID)
	if err != nil {
		return err
	}
	winners, err := e.sync.LoadWinners(ctx, e.projectID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cohorts = ws.Cohorts
	for i := range ws.Segments {
		if i < domain.SegmentCount {
			e.segments[i] = ws.Segments[i]
		}
	}
	e.winners = winners
	return nil
}

// Cohorts returns a copy of the loaded cohort pool.
func (e *Engine) Cohorts() []domain.Cohort {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Cohort, len(e.cohorts))
	copy(out, e.cohorts)
	return out
}

// ActiveSegmentIndex returns the currently displayed segment.
func (e *Engine) ActiveSegmentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeIdx
}

// Segment returns a deep copy of the indexed segment's state.
func (e *Engine) Segment(i int) (domain.Segment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= domain.SegmentCount {
		return domain.Segment{}, fmt.Errorf("segment index %d out of range", i)
	}
	return e.segments[i].Clone(), nil
}

// SegmentPatch carries the fields PatchSegment shallow-merges. Sub-objects
// replace wholesale; callers mutating placements or labels must supply the
// full map or pair.
type SegmentPatch struct {
	Labels     *domain.AxisLabels
	Active     map[string]bool
	Placements map[string]planar.Point
}

// PatchSegment shallow-merges the provided fields into the segment. Nil
// fields are left untouched. Provided maps are copied so the caller cannot
// mutate engine state afterwards.
func (e *Engine) PatchSegment(i int, patch SegmentPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= domain.SegmentCount {
		return fmt.Errorf("segment index %d out of range", i)
	}
	if patch.Labels != nil {
		e.segments[i].Labels = *patch.Labels
	}
	if patch.Active != nil {
		active := make(map[string]bool, len(patch.Active))
		for id, on := range patch.Active {
			active[id] = on
		}
		e.segments[i].Active = active
	}
	if patch.Placements != nil {
		placements := make(map[string]planar.Point, len(patch.Placements))
		for id, p := range patch.Placements {
			placements[id] = p
		}
		e.segments[i].Placements = placements
	}
	return nil
}

// SwitchSegment makes the indexed segment active and resyncs its
// authoritative placement/selection set from storage, reconciling changes
// made elsewhere (for example another tab). A missing remote document keeps
// the local state.
func (e *Engine) SwitchSegment(ctx context.Context, i int) (err error) {
	start := e.now()
	defer func() { e.observe(ctx, "switch_segment", start, err) }()

	if i < 0 || i >= domain.SegmentCount {
		return fmt.Errorf("segment index %d out of range", i)
	}
	e.mu.Lock()
	e.activeIdx = i
	label := e.segments[i].Label
	e.mu.Unlock()

	sel, err := e.sync.LoadSegmentSelection(ctx, e.projectID, label)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	seg := &e.segments[i]
	seg.Active = make(map[string]bool, len(sel.ActiveIDs))
	for _, id := range sel.ActiveIDs {
		seg.Active[id] = true
	}
	seg.Placements = make(map[string]planar.Point, len(sel.Placements))
	for id, p := range sel.Placements {
		seg.Placements[id] = p
	}
	return nil
}

// DisplayPosition returns the cohort's display-space position on the
// segment, or false when it has never been positioned.
func (e *Engine) DisplayPosition(i int, cohortID string) (planar.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= domain.SegmentCount {
		return planar.Point{}, false
	}
	p, ok := e.segments[i].Placements[cohortID]
	if !ok {
		return planar.Point{}, false
	}
	return planar.ToDisplay(p.X, p.Y), true
}

// DeleteCohort archives the cohort upstream and mirrors the state locally.
// Segment placements referencing it are intentionally not scrubbed.
func (e *Engine) DeleteCohort(ctx context.Context, cohortID string) (err error) {
	start := e.now()
	defer func() { e.observe(ctx, "delete_cohort", start, err) }()

	if err = e.sync.DeleteCohort(ctx, e.projectID, cohortID); err != nil {
		e.notify.Error("Could not delete the cohort. Please try again.")
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for idx := range e.cohorts {
		if e.cohorts[idx].ID == cohortID {
			e.cohorts[idx].State = domain.CohortArchived
		}
	}
	return nil
}

func (e *Engine) randomPaddedDisplay() planar.Point {
	span := planar.PaddedMax - planar.PaddedMin
	return planar.Point{
		X: planar.PaddedMin + e.random()*span,
		Y: planar.PaddedMin + e.random()*span,
	}
}
