// Package fetch issues GET requests for JSON documents served by the site
// that publishes the search index and the per-document metadata records.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meghashyamc/searchbox/logger"
)

const maxBodySize = 64 * 1024 * 1024

var ErrMalformedBody = errors.New("malformed JSON body")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger
}

func New(logger logger.Logger, baseURL string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}, nil
}

// URL joins path onto the base url verbatim; path must start with a slash.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// GetJSON fetches path and decodes the body into v. The body is decoded in
// full before v is considered valid.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	target := c.URL(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "url", target, "err", err.Error())
		return fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read body of %s: %w", target, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w from %s: %s", ErrMalformedBody, target, err.Error())
	}

	return nil
}
