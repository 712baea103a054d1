// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package api implements the typed client for the PaperSynth processing
// backend: the transport layer, the processing operations, and the adapter
// that converts backend responses into the display shape.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MerLin027/PaperSynth/pkg/observability/logging"
)

// DefaultTimeout is wide enough to cover the slowest backend job; the AI
// pipeline can take minutes per paper.
const DefaultTimeout = 5 * time.Minute

// TokenSource supplies the static service secret attached to every backend
// request. auth.ServiceToken satisfies it.
type TokenSource interface {
	Credential() (string, error)
}

// Options configures optional Client behavior.
type Options struct {
	Timeout time.Duration
	Logger  *logging.Logger

	// OnUnauthorized runs whenever the backend answers 401, regardless of
	// which operation triggered it. The failed call still returns its error.
	OnUnauthorized func()
}

// Client issues requests against the processing backend. Base URL and
// timeout are fixed at construction; every operation attempts exactly once.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	logger         *logging.Logger
	onUnauthorized func()
}

// NewClient creates a backend client. baseURL is the backend root, without
// a trailing slash (e.g. "http://localhost:8000").
func NewClient(baseURL string, tokens TokenSource, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
		tokens:         tokens,
		logger:         logger.Component("backend_client"),
		onUnauthorized: opts.OnUnauthorized,
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// newRequest builds a request against the backend with the bearer credential
// attached. path must start with "/".
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setAuth(req)
	return req, nil
}

func (c *Client) setAuth(req *http.Request) {
	token, err := c.tokens.Credential()
	if err != nil {
		// The backend allows unauthenticated access when no token is
		// configured, so send the request bare rather than failing early.
		c.logger.Debug("sending request without service credential", "path", req.URL.Path)
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// do issues the request and normalizes failures: any non-2xx response is
// read, parsed into *Error, and returned as an error. A 401 additionally
// fires the OnUnauthorized hook. Callers own the response body on success.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to backend failed: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	return nil, decodeError(resp, body)
}
