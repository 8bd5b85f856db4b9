// Package search owns the search page lifecycle: loading the index once,
// running queries against it and dispatching each match to the renderer.
package search

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/meghashyamc/searchbox/db/kvdb"
	"github.com/meghashyamc/searchbox/db/searchdb"
	"github.com/meghashyamc/searchbox/logger"
	"github.com/meghashyamc/searchbox/metrics"
	"github.com/meghashyamc/searchbox/services/render"
	"golang.org/x/sync/errgroup"
)

const defaultQueryHistory = 1000

var (
	ErrIndexNotLoaded = errors.New("search index is not loaded")
	ErrLoadAttempted  = errors.New("search index load was already attempted")
	ErrIndexLoad      = errors.New("search index failed to load")
)

// QueryError is returned when the index rejects a query. The results
// container has already been reset when it is returned.
type QueryError struct {
	Generation uint64
	Query      string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q (generation %d) failed: %s", e.Query, e.Generation, e.Err.Error())
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

type IndexLoader interface {
	Load(ctx context.Context) (searchdb.Index, error)
}

type MatchRenderer interface {
	Render(ctx context.Context, sink render.Sink, match searchdb.Match) error
}

type Options struct {
	// MaxInFlight bounds concurrent metadata fetches per query. Zero or less
	// dispatches every match at once.
	MaxInFlight int
	// QueryHistory is the number of query records kept in the status store.
	QueryHistory int
}

// Results is a snapshot of the current results container.
type Results struct {
	Generation uint64            `json:"generation"`
	State      State             `json:"state"`
	Fragments  []render.Fragment `json:"fragments"`
	HTML       template.HTML     `json:"-"`
}

type Controller struct {
	ctx         context.Context
	logger      logger.Logger
	loader      IndexLoader
	renderer    MatchRenderer
	queries     *queryLog
	metrics     *metrics.Metrics
	maxInFlight int

	mu            sync.Mutex
	state         State
	index         searchdb.Index
	loadAttempted bool
	generation    uint64
	container     *render.Container
	cancel        context.CancelFunc
}

// New creates an idle controller. ctx bounds every render it dispatches.
// Generations continue from the last one recorded in store.
func New(ctx context.Context, logger logger.Logger, loader IndexLoader, renderer MatchRenderer, store StatusStore, metrics *metrics.Metrics, opts Options) *Controller {
	if opts.QueryHistory <= 0 {
		opts.QueryHistory = defaultQueryHistory
	}

	queries := &queryLog{store: store, logger: logger, retain: opts.QueryHistory}
	generation, err := queries.lastGeneration()
	if err != nil {
		logger.Error("failed to read last query generation, starting from 0", "err", err.Error())
		generation = 0
	}

	return &Controller{
		ctx:         ctx,
		logger:      logger,
		loader:      loader,
		renderer:    renderer,
		queries:     queries,
		metrics:     metrics,
		maxInFlight: opts.MaxInFlight,
		state:       StateIdle,
		generation:  generation,
		container:   render.NewContainer(generation),
	}
}

// Start loads the index. It runs at most once; after a failed load the
// controller stays idle for the rest of its life.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.loadAttempted {
		c.mu.Unlock()
		return ErrLoadAttempted
	}
	c.loadAttempted = true
	c.mu.Unlock()

	index, err := c.loader.Load(ctx)
	if err != nil {
		c.logger.Error("search index failed to load, search stays disabled", "err", err.Error())
		return fmt.Errorf("%w: %w", ErrIndexLoad, err)
	}

	if count, err := index.DocCount(); err == nil {
		c.metrics.IndexedDocuments.Set(float64(count))
	}

	c.mu.Lock()
	c.index = index
	c.state = StateReady
	c.mu.Unlock()

	c.logger.Info("search is ready")
	return nil
}

// Submit resets the results container, runs queryText against the index and
// dispatches every match for rendering without waiting for the renders.
func (c *Controller) Submit(queryText string) (*Dispatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		c.metrics.QueriesTotal.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return nil, ErrIndexNotLoaded
	}

	generation, container, renderCtx := c.resetLocked()
	record := kvdb.QueryRecord{
		Generation:  generation,
		Query:       queryText,
		State:       kvdb.QueryStateQuerying,
		SubmittedAt: time.Now().UTC(),
	}
	c.queries.put(record)

	start := time.Now()
	matches, err := c.index.Search(queryText)
	c.metrics.QueryLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		c.state = StateReady
		outcome := metrics.OutcomeFailed
		if errors.Is(err, searchdb.ErrMalformedQuery) {
			outcome = metrics.OutcomeMalformed
		}
		c.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
		c.logger.Warn("query failed", "generation", generation, "query", queryText, "err", err.Error())

		completedAt := time.Now().UTC()
		record.State = kvdb.QueryStateFailed
		record.Error = err.Error()
		record.CompletedAt = &completedAt
		c.queries.put(record)

		return nil, &QueryError{Generation: generation, Query: queryText, Err: err}
	}

	outcome := metrics.OutcomeOK
	if len(matches) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	c.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	c.metrics.MatchesPerQuery.Observe(float64(len(matches)))
	c.logger.Debug("query ranked", "generation", generation, "query", queryText, "matches", len(matches))

	record.State = kvdb.QueryStateRendering
	record.Matches = len(matches)
	c.queries.put(record)

	c.state = StateRendering
	dispatch := newDispatch(generation, queryText, matches)
	go c.dispatch(renderCtx, container, dispatch, record)

	return dispatch, nil
}

// resetLocked starts a new generation with an empty container and cancels
// the renders of the previous one. c.mu must be held.
func (c *Controller) resetLocked() (uint64, *render.Container, context.Context) {
	if c.cancel != nil {
		c.cancel()
	}

	c.generation++
	c.container = render.NewContainer(c.generation)
	c.state = StateQuerying
	c.metrics.Generation.Set(float64(c.generation))

	renderCtx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel

	return c.generation, c.container, renderCtx
}

func (c *Controller) dispatch(ctx context.Context, container *render.Container, dispatch *Dispatch, record kvdb.QueryRecord) {
	sink := &containerSink{controller: c, container: container, generation: dispatch.Generation}

	var group errgroup.Group
	if c.maxInFlight > 0 {
		group.SetLimit(c.maxInFlight)
	}

	for _, match := range dispatch.Matches {
		group.Go(func() error {
			err := c.renderer.Render(ctx, sink, match)
			dispatch.record(err)
			return nil
		})
	}
	c.markDispatched(dispatch.Generation)

	group.Wait()
	defer dispatch.finish()

	counts := dispatch.Counts()
	completedAt := time.Now().UTC()
	record.State = kvdb.QueryStateDone
	record.Rendered = counts.Rendered
	record.Failed = counts.Failed
	record.Stale = counts.Stale
	record.CompletedAt = &completedAt
	c.queries.put(record)
	c.queries.prune()

	c.logger.Debug("query renders finished", "generation", dispatch.Generation, "rendered", counts.Rendered, "failed", counts.Failed, "stale", counts.Stale)
}

func (c *Controller) markDispatched(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation == generation && c.state == StateRendering {
		c.state = StateReady
	}
}

func (c *Controller) isCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == generation
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Results() Results {
	c.mu.Lock()
	container := c.container
	state := c.state
	c.mu.Unlock()

	fragments := container.Fragments()
	return Results{
		Generation: container.Generation(),
		State:      state,
		Fragments:  fragments,
		HTML:       render.ContainerHTML(fragments),
	}
}

// QueryStatus returns the stored record for generation. Unknown generations
// yield a *kvdb.NotFoundError.
func (c *Controller) QueryStatus(generation uint64) (*kvdb.QueryRecord, error) {
	return c.queries.get(generation)
}

func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.index != nil {
		return c.index.Close()
	}
	return nil
}
