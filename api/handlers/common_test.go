// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/searchbox/config"
	"github.com/meghashyamc/searchbox/db/kvdb"
	"github.com/meghashyamc/searchbox/fetch"
	"github.com/meghashyamc/searchbox/logger"
	"github.com/meghashyamc/searchbox/metrics"
	"github.com/meghashyamc/searchbox/services/render"
	"github.com/meghashyamc/searchbox/services/search"
	"github.com/meghashyamc/searchbox/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

// testSite is the static site the handlers' controller reads from.
var testSite = map[string]string{
	"/documents.json": `{
		"version": "2.3.9",
		"ref": "id",
		"fields": ["title", "abstract", "interviewer"],
		"documents": [
			{"id": "interviews/001", "title": "Oral History with J. Smith", "interviewer": "J. Smith"},
			{"id": "articles/017", "title": "Thermal properties of granular media"},
			{"id": "articles/018", "title": "Granular media under shear"}
		]
	}`,
	"/interviews/001/scheme.json": `{"title": "Oral History with J. Smith", "interviewer": "J. Smith", "abstract": "..."}`,
	"/articles/017/scheme.json":   `{"title": "Thermal properties of granular media", "type": "Article"}`,
}

type testCase struct {
	name             string
	requestHeaders   map[string]string
	requestBody      map[string]any
	rawRequestBody   string
	queryParams      map[string]string
	expectedStatus   int
	expectedResponse map[string]any
}

func newTestLogger() logger.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestSiteServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := testSite[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// setupTestServer wires the handlers to a real controller reading from a
// local test site. When load is false the index is never loaded.
func setupTestServer(t *testing.T, assert *require.Assertions, load bool) (*gin.Engine, *search.Controller) {

	t.Setenv("ENV", "test")

	cfg, err := config.Load()
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()
	site := newTestSiteServer(t)

	fetcher, err := fetch.New(testLogger, site.URL, cfg.GetFetchTimeout())
	assert.NoError(err, "could not create fetch client")

	kvDB, err := kvdb.New(testLogger, filepath.Join(t.TempDir(), "queries.db"))
	assert.NoError(err, "could not create kv database")

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	m := metrics.New()
	renderer := render.New(testLogger, fetcher, m)
	loader := search.NewLoader(testLogger, fetcher, validator, cfg.GetIndexPath(), cfg.GetSearchMaxResults())
	controller := search.New(context.Background(), testLogger, loader, renderer, kvDB, m, search.Options{
		MaxInFlight:  cfg.GetMaxInFlight(),
		QueryHistory: cfg.GetQueryHistory(),
	})
	if load {
		assert.NoError(controller.Start(context.Background()), "could not load search index")
	}

	t.Cleanup(func() {
		assert.NoError(controller.Close(), "could not close search index")
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupSearch(router, testLogger, controller, validator)
	SetupResults(router, testLogger, controller)

	return router, controller
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBody io.Reader, queryParams map[string]string) *httptest.ResponseRecorder {

	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}

	req, err := http.NewRequest(method, endpoint, requestBody)
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func testRequestBody(assert *require.Assertions, testCase testCase) io.Reader {
	if testCase.rawRequestBody != "" {
		return bytes.NewBufferString(testCase.rawRequestBody)
	}
	if testCase.requestBody == nil {
		return nil
	}

	jsonBody, err := json.Marshal(testCase.requestBody)
	assert.NoError(err)
	return bytes.NewBuffer(jsonBody)
}

func submitQuery(assert *require.Assertions, router *gin.Engine, query string) uint64 {
	body, err := json.Marshal(map[string]any{"query": query})
	assert.NoError(err)

	w := makeTestHTTPRequest(router, assert, http.MethodPost, "/search", defaultTestRequestHeaders, bytes.NewBuffer(body), nil)
	assert.Equal(http.StatusAccepted, w.Code, "response gotten was %s", w.Body.String())

	type searchResponse struct {
		Data   SearchResponse `json:"data"`
		Errors []string       `json:"errors"`
	}
	actualResponse := searchResponse{}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &actualResponse), "could not unmarshal gotten response")
	return actualResponse.Data.Generation
}

// waitForQuery polls the status endpoint until the query's renders are done.
func waitForQuery(assert *require.Assertions, router *gin.Engine, generation uint64) kvdb.QueryRecord {
	type statusResponse struct {
		Data   kvdb.QueryRecord `json:"data"`
		Errors []string         `json:"errors"`
	}

	maxWait := 5 * time.Second
	for startTime := time.Now().UTC(); time.Since(startTime) < maxWait; time.Sleep(20 * time.Millisecond) {
		w := makeTestHTTPRequest(router, assert, http.MethodGet, "/search/"+strconv.FormatUint(generation, 10), nil, nil, nil)
		if w.Code != http.StatusOK {
			continue
		}
		actualResponse := statusResponse{}
		assert.NoError(json.Unmarshal(w.Body.Bytes(), &actualResponse))
		if actualResponse.Data.State == kvdb.QueryStateDone {
			return actualResponse.Data
		}
	}
	assert.Fail("timed out waiting for query renders", "generation %d", generation)
	return kvdb.QueryRecord{}
}
