package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meghashyamc/searchbox/db/kvdb"
	"github.com/meghashyamc/searchbox/fetch"
	"github.com/meghashyamc/searchbox/metrics"
	"github.com/meghashyamc/searchbox/services/render"
	"github.com/meghashyamc/searchbox/services/search"
	"github.com/meghashyamc/searchbox/validation"
	"github.com/stretchr/testify/require"
)

// newTestRouter builds the full router around a controller whose index is
// never loaded.
func newTestRouter(t *testing.T) *gin.Engine {
	assert := require.New(t)
	testLogger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	fetcher, err := fetch.New(testLogger, "http://127.0.0.1:1", time.Second)
	assert.NoError(err)
	kvDB, err := kvdb.New(testLogger, filepath.Join(t.TempDir(), "queries.db"))
	assert.NoError(err)
	t.Cleanup(func() { kvDB.Close() })
	validator, err := validation.New(testLogger)
	assert.NoError(err)

	m := metrics.New()
	loader := search.NewLoader(testLogger, fetcher, validator, "/documents.json", 0)
	controller := search.New(context.Background(), testLogger, loader, render.New(testLogger, fetcher, m), kvDB, m, search.Options{})

	gin.SetMode(gin.TestMode)
	router := newRouter(testLogger, m)
	setupRoutes(router, testLogger, controller, m, validator)
	return router
}

func TestHealth(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("OK", w.Body.String())
}

func TestRequestIDIsGeneratedOrEchoed(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderRequestID))
	assert.NoError(err, "expected a generated uuid request id")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal("abc-123", w.Header().Get(HeaderRequestID))
}

func TestCORSPreflight(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/search", nil))
	assert.Equal(http.StatusNoContent, w.Code)
	assert.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMetricsRecordRoutes(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString(`{"query": "smith"}`)))
	assert.Equal(http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search/7", nil))
	assert.Equal(http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(body, `http_requests_total{method="POST",route="/search",status="503"} 1`)
	assert.Contains(body, `http_requests_total{method="GET",route="/search/:generation",status="404"} 1`)
	assert.Contains(body, `http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(body, `search_queries_total{outcome="unavailable"} 1`)
}
