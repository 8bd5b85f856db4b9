package search

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/meghashyamc/searchbox/db/searchdb"
	"github.com/meghashyamc/searchbox/services/render"
)

// Dispatch tracks the renders started for one query. The controller never
// waits on it; callers that need completion use Done or Wait.
type Dispatch struct {
	Generation uint64
	Query      string
	Matches    []searchdb.Match

	done     chan struct{}
	rendered atomic.Int64
	failed   atomic.Int64
	stale    atomic.Int64
}

// DispatchCounts are per-query render outcomes. Failed matches were rendered
// as stubs.
type DispatchCounts struct {
	Rendered int
	Failed   int
	Stale    int
}

func newDispatch(generation uint64, query string, matches []searchdb.Match) *Dispatch {
	return &Dispatch{
		Generation: generation,
		Query:      query,
		Matches:    matches,
		done:       make(chan struct{}),
	}
}

func (d *Dispatch) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatch) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatch) Counts() DispatchCounts {
	return DispatchCounts{
		Rendered: int(d.rendered.Load()),
		Failed:   int(d.failed.Load()),
		Stale:    int(d.stale.Load()),
	}
}

func (d *Dispatch) record(err error) {
	switch {
	case err == nil:
		d.rendered.Add(1)
	case errors.Is(err, render.ErrStale):
		d.stale.Add(1)
	default:
		d.failed.Add(1)
	}
}

func (d *Dispatch) finish() {
	close(d.done)
}

// containerSink binds a render to the container and generation that were
// current when its match was dispatched.
type containerSink struct {
	controller *Controller
	container  *render.Container
	generation uint64
}

func (s *containerSink) Current() bool {
	return s.controller.isCurrent(s.generation)
}

func (s *containerSink) Deliver(fragment render.Fragment) bool {
	s.controller.mu.Lock()
	defer s.controller.mu.Unlock()

	if s.controller.generation != s.generation {
		return false
	}
	s.container.Append(fragment)
	return true
}
