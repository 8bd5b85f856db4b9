// Package render turns search matches into HTML result fragments. Each match
// fetches its own metadata record, so failures stay local to that match.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meghashyamc/searchbox/db/searchdb"
	"github.com/meghashyamc/searchbox/logger"
	"github.com/meghashyamc/searchbox/metrics"
)

var (
	ErrMetadataFetch = errors.New("metadata fetch failed")
	ErrStale         = errors.New("fragment belongs to a superseded query")
)

type MetadataFetcher interface {
	GetJSON(ctx context.Context, path string, v any) error
}

// Sink receives the fragment of one match. Current reports whether the query
// the match belongs to is still the latest one; Deliver returns false when
// the fragment was discarded.
type Sink interface {
	Current() bool
	Deliver(fragment Fragment) bool
}

type Renderer struct {
	logger  logger.Logger
	fetcher MetadataFetcher
	metrics *metrics.Metrics
}

func New(logger logger.Logger, fetcher MetadataFetcher, metrics *metrics.Metrics) *Renderer {
	return &Renderer{
		logger:  logger,
		fetcher: fetcher,
		metrics: metrics,
	}
}

// MetadataPath is the location of a document's metadata record.
func MetadataPath(ref string) string {
	return "/" + ref + "/scheme.json"
}

// Render fetches the metadata for match and delivers a fragment to sink. When
// the fetch fails a stub fragment is delivered and an error wrapping
// ErrMetadataFetch is returned. ErrStale means nothing was delivered.
func (r *Renderer) Render(ctx context.Context, sink Sink, match searchdb.Match) error {
	if !sink.Current() {
		r.metrics.MetadataFetchesTotal.WithLabelValues(metrics.OutcomeStale).Inc()
		return ErrStale
	}

	fragment, fetchErr := r.fetchFragment(ctx, match.Ref)
	if fetchErr != nil {
		if !sink.Current() {
			r.metrics.MetadataFetchesTotal.WithLabelValues(metrics.OutcomeStale).Inc()
			return ErrStale
		}
		r.logger.Warn("could not render match, using stub", "ref", match.Ref, "err", fetchErr.Error())
		fragment = StubFragment(match.Ref)
	}

	if !sink.Deliver(fragment) {
		r.logger.Debug("discarded fragment of superseded query", "ref", match.Ref)
		r.metrics.MetadataFetchesTotal.WithLabelValues(metrics.OutcomeStale).Inc()
		return ErrStale
	}

	if fetchErr != nil {
		r.metrics.MetadataFetchesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return fmt.Errorf("%w for %s: %w", ErrMetadataFetch, match.Ref, fetchErr)
	}

	r.metrics.MetadataFetchesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	return nil
}

func (r *Renderer) fetchFragment(ctx context.Context, ref string) (Fragment, error) {
	r.metrics.RendersInFlight.Inc()
	defer r.metrics.RendersInFlight.Dec()

	start := time.Now()
	var metadata Metadata
	err := r.fetcher.GetJSON(ctx, MetadataPath(ref), &metadata)
	r.metrics.MetadataFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return Fragment{}, err
	}

	return BuildFragment(ref, &metadata)
}
