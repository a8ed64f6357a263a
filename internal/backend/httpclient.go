// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
)

const (
	defaultInvokeTimeout = 60 * time.Second
	defaultProbeTimeout  = 5 * time.Second

	// maxErrorBodyBytes bounds how much of a backend error body is read
	// into a diagnostic message.
	maxErrorBodyBytes = 4096
)

// HTTPClient is a generic JSON-over-HTTP backend client. Backends expose
// GET <base><healthPath> for probes and POST <base>/api/ops/<op> for
// invocations.
type HTTPClient struct {
	tag        Tag
	baseURL    string
	healthPath string
	operations []string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// HTTPClientOption customizes an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHealthPath overrides the default /health probe path.
func WithHealthPath(path string) HTTPClientOption {
	return func(c *HTTPClient) { c.healthPath = path }
}

// WithTimeout overrides the invocation timeout.
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// NewHTTPClient creates a backend client for the service at baseURL.
// operations is the backend's known operation catalogue, surfaced in
// dispatch error diagnostics.
func NewHTTPClient(tag Tag, baseURL string, operations []string, opts ...HTTPClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, pberr.New(pberr.CodeBackendRequestInvalid,
			"backend endpoint is required", pberr.FieldBackend(string(tag)))
	}

	c := &HTTPClient{
		tag:        tag,
		baseURL:    baseURL,
		healthPath: "/health",
		operations: append([]string(nil), operations...),
		httpClient: &http.Client{
			Timeout: defaultInvokeTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) Name() Tag        { return c.tag }
func (c *HTTPClient) Endpoint() string { return c.baseURL }

// Operations returns a copy of the backend's operation catalogue.
func (c *HTTPClient) Operations() []string {
	return append([]string(nil), c.operations...)
}

// CheckHealth issues a bounded GET against the backend's health path.
func (c *HTTPClient) CheckHealth(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return pberr.Wrap(err, pberr.CodeBackendHealthProbeFailure,
			"building health probe", pberr.FieldBackend(string(c.tag)))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pberr.Wrap(err, pberr.CodeBackendHealthProbeFailure,
			"health probe failed",
			pberr.FieldBackend(string(c.tag)), pberr.FieldEndpoint(c.baseURL))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return pberr.Errorf(pberr.CodeBackendHealthProbeFailure,
			"health probe for %s returned %d", c.tag, resp.StatusCode)
	}
	return nil
}

// invokeEnvelope is the JSON body POSTed to a backend operation.
type invokeEnvelope struct {
	RequestID string         `json:"request_id"`
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments"`
}

// Invoke POSTs the operation to the backend and decodes the JSON result.
// Attribution from rc travels as headers so the backend can account usage
// without trusting the argument payload.
func (c *HTTPClient) Invoke(ctx context.Context, op string, args map[string]any, rc *RequestContext) (any, error) {
	body, err := json.Marshal(invokeEnvelope{
		RequestID: uuid.New().String(),
		Operation: op,
		Arguments: args,
	})
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeBackendRequestInvalid,
			"marshalling invocation", pberr.FieldBackend(string(c.tag)), pberr.FieldOperation(op))
	}

	url := fmt.Sprintf("%s/api/ops/%s", c.baseURL, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeBackendRequestInvalid,
			"building invocation request", pberr.FieldBackend(string(c.tag)), pberr.FieldOperation(op))
	}
	req.Header.Set("Content-Type", "application/json")
	applyAttribution(req, rc)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeBackendUpstreamFailure,
			"backend call failed",
			pberr.FieldBackend(string(c.tag)), pberr.FieldOperation(op), pberr.FieldEndpoint(c.baseURL))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, pberr.New(pberr.CodeBackendUpstreamFailure,
			fmt.Sprintf("backend returned %d: %s", resp.StatusCode, string(snippet)),
			pberr.FieldBackend(string(c.tag)), pberr.FieldOperation(op), pberr.FieldEndpoint(c.baseURL))
	}

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pberr.Wrap(err, pberr.CodeBackendResponseInvalid,
			"decoding backend response", pberr.FieldBackend(string(c.tag)), pberr.FieldOperation(op))
	}
	return result, nil
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func applyAttribution(req *http.Request, rc *RequestContext) {
	if rc == nil {
		return
	}
	if rc.CallerKeyID != "" {
		req.Header.Set("X-Caller-Key-Id", rc.CallerKeyID)
	}
	if rc.UserID != "" {
		req.Header.Set("X-User-Id", rc.UserID)
	}
	if rc.Tier != "" {
		req.Header.Set("X-Caller-Tier", rc.Tier)
	}
	if rc.Email != "" {
		req.Header.Set("X-Caller-Email", rc.Email)
	}
}
