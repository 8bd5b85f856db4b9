package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), server.URL+"/", time.Second)
	require.NoError(t, err)
	return client
}

func TestGetJSON(t *testing.T) {
	assert := require.New(t)
	var requestedPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title": "Oral History with J. Smith"}`))
	}))

	var out map[string]any
	err := client.GetJSON(context.Background(), "/interviews/001/scheme.json", &out)
	assert.NoError(err)
	assert.Equal("/interviews/001/scheme.json", requestedPath)
	assert.Equal("Oral History with J. Smith", out["title"])
}

func TestGetJSONErrors(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		expectErr  error
		expectCode int
	}{
		{name: "NotFound", status: http.StatusNotFound, body: "missing", expectCode: http.StatusNotFound},
		{name: "ServerError", status: http.StatusInternalServerError, body: "", expectCode: http.StatusInternalServerError},
		{name: "MalformedBody", status: http.StatusOK, body: `{"title": `, expectErr: ErrMalformedBody},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testCase.status)
				w.Write([]byte(testCase.body))
			}))

			var out map[string]any
			err := client.GetJSON(context.Background(), "/doc/scheme.json", &out)
			assert.Error(err)

			if testCase.expectErr != nil {
				assert.True(errors.Is(err, testCase.expectErr), "unexpected error %v", err)
			}
			if testCase.expectCode != 0 {
				var statusErr *StatusError
				assert.True(errors.As(err, &statusErr), "expected a status error, got %v", err)
				assert.Equal(testCase.expectCode, statusErr.StatusCode)
			}
		})
	}
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	assert := require.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(logger, "", time.Second)
	assert.Error(err)

	_, err = New(logger, "ftp://example.org", time.Second)
	assert.Error(err)
}

func TestURLKeepsRefVerbatim(t *testing.T) {
	assert := require.New(t)
	client, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), "https://example.org/", time.Second)
	assert.NoError(err)

	assert.Equal("https://example.org/interviews/001/scheme.json", client.URL("/interviews/001/scheme.json"))
}
