// Package docsync reads and writes the remote documents backing the
// placement engine: cohorts, the three perceptual-map segments, and the
// winner selection. All writes are read-modify-write on the whole document
// payload; per-key serialization and bounded retry restore ordering and
// resilience on top of that.
package docsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"placementcore/pkg/domain"
	"placementcore/pkg/planar"
)

// RetryPolicy bounds re-attempts of transient write failures.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries transient failures twice after the initial
// attempt, with exponential backoff.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond}

// Adapter synchronizes engine state with a document store.
type Adapter struct {
	store  domain.DocumentStore
	log    *slog.Logger
	random func() float64
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error

	keysMu sync.Mutex
	keys   map[string]*sync.Mutex
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger overrides the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// WithRandom overrides the uniform [0,1) source used for synthesized
// placements. Intended for deterministic tests.
func WithRandom(random func() float64) Option {
	return func(a *Adapter) {
		if random != nil {
			a.random = random
		}
	}
}

// WithRetryPolicy overrides the write retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(a *Adapter) {
		if policy.Attempts > 0 {
			a.policy = policy
		}
	}
}

// New constructs an adapter over the given document store.
func New(store domain.DocumentStore, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		log:    slog.Default(),
		random: rand.Float64,
		policy: DefaultRetryPolicy,
		keys:   make(map[string]*sync.Mutex),
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// lockKey serializes writes per (segment label, cohort id) so rapid
// consecutive updates of the same pin commit in send order.
func (a *Adapter) lockKey(label, cohortID string) func() {
	key := label + "\x00" + cohortID
	a.keysMu.Lock()
	mu, ok := a.keys[key]
	if !ok {
		mu = &sync.Mutex{}
		a.keys[key] = mu
	}
	a.keysMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// randomPaddedDisplay returns a uniform display-space position inside the
// padded range, keeping fresh pins away from the canvas edges.
func (a *Adapter) randomPaddedDisplay() planar.Point {
	span := planar.PaddedMax - planar.PaddedMin
	return planar.Point{
		X: planar.PaddedMin + a.random()*span,
		Y: planar.PaddedMin + a.random()*span,
	}
}

// writeExtra replaces a document payload, retrying transient failures with
// exponential backoff.
func (a *Adapter) writeExtra(ctx context.Context, docID string, extra json.RawMessage) error {
	var lastErr error
	for attempt := 0; attempt < a.policy.Attempts; attempt++ {
		if attempt > 0 {
			delay := a.policy.BaseDelay << (attempt - 1)
			if err := a.sleep(ctx, delay); err != nil {
				return err
			}
		}
		_, err := a.store.UpdateDocument(ctx, docID, extra)
		if err == nil {
			return nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			return err
		}
		a.log.Warn("document write failed, retrying", "doc", docID, "attempt", attempt+1, "err", err)
	}
	return fmt.Errorf("update document %s: %w", docID, lastErr)
}

// segmentDocument finds the perceptual-map document matching label. When no
// document matches, it degrades to the first available document of the same
// type; the mismatch is logged loudly but does not fail the caller. Whether
// that fallback masks data corruption is an open product question, so the
// behavior is preserved as-is.
func (a *Adapter) segmentDocument(ctx context.Context, projectID, label string) (domain.Document, domain.SegmentExtra, error) {
	docs, err := a.store.QueryByProjectAndType(ctx, projectID, domain.DocumentPerceptualMap)
	if err != nil {
		return domain.Document{}, domain.SegmentExtra{}, fmt.Errorf("query perceptual maps: %w", err)
	}
	if len(docs) == 0 {
		return domain.Document{}, domain.SegmentExtra{}, domain.ErrNotFound{Type: domain.DocumentPerceptualMap}
	}
	for _, doc := range docs {
		extra := domain.DecodeSegmentExtra(doc.Extra)
		if extra.Label == label {
			return doc, extra, nil
		}
	}
	fallback := docs[0]
	extra := domain.DecodeSegmentExtra(fallback.Extra)
	a.log.Warn("no segment document matches label, falling back to first available",
		"project", projectID, "label", label, "fallback_doc", fallback.ID, "fallback_label", extra.Label)
	return fallback, extra, nil
}
