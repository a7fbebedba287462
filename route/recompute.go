package route

import (
	"context"
	"sync/atomic"

	"motoroute/waypoint"
)

// Recomputer runs route computations with last-requested-wins semantics: every
// request takes a generation number and a result is only current while no newer
// request (or Invalidate) has happened since.
type Recomputer struct {
	agg        *Aggregator
	generation atomic.Uint64
}

// NewRecomputer wraps agg.
func NewRecomputer(agg *Aggregator) *Recomputer {
	return &Recomputer{agg: agg}
}

// Begin starts a new generation and returns it.
func (r *Recomputer) Begin() uint64 {
	return r.generation.Add(1)
}

// Invalidate supersedes any request in flight without starting a computation.
func (r *Recomputer) Invalidate() {
	r.generation.Add(1)
}

// IsCurrent reports whether gen is still the latest generation.
func (r *Recomputer) IsCurrent(gen uint64) bool {
	return r.generation.Load() == gen
}

// Compute runs the aggregator for an already started generation and returns
// ErrSuperseded when gen is stale by the time the collaborator answers.
func (r *Recomputer) Compute(ctx context.Context, gen uint64, wps []waypoint.Waypoint, avoidHighways bool) (*Summary, error) {
	summary, err := r.agg.ComputeRoute(ctx, wps, avoidHighways)
	if !r.IsCurrent(gen) {
		return nil, ErrSuperseded
	}
	return summary, err
}

// Recompute starts a new generation and computes it.
func (r *Recomputer) Recompute(ctx context.Context, wps []waypoint.Waypoint, avoidHighways bool) (*Summary, error) {
	return r.Compute(ctx, r.Begin(), wps, avoidHighways)
}
