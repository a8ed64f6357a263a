// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/patchbay-dev/patchbay/internal/backend"
	"github.com/patchbay-dev/patchbay/internal/router"
	"github.com/patchbay-dev/patchbay/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	tag       backend.Tag
	ops       []string
	healthErr error
	invoke    func(op string, args map[string]any, rc *backend.RequestContext) (any, error)
}

func (s *stubClient) Name() backend.Tag    { return s.tag }
func (s *stubClient) Endpoint() string     { return "http://" + string(s.tag) + ".internal:8080" }
func (s *stubClient) Operations() []string { return s.ops }
func (s *stubClient) Close() error         { return nil }

func (s *stubClient) CheckHealth(context.Context) error { return s.healthErr }

func (s *stubClient) Invoke(_ context.Context, op string, args map[string]any, rc *backend.RequestContext) (any, error) {
	if s.invoke != nil {
		return s.invoke(op, args, rc)
	}
	return map[string]any{"op": op}, nil
}

func newTestServer(t *testing.T, clients map[backend.Tag]backend.Client) *server.Server {
	t.Helper()

	d, err := router.NewDispatcher(router.DispatcherConfig{
		Clients: clients,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, d)
	require.NoError(t, err)
	return srv
}

func defaultClients() map[backend.Tag]backend.Client {
	clients := make(map[backend.Tag]backend.Client)
	for tag, ops := range router.DefaultOperations() {
		clients[tag] = &stubClient{tag: tag, ops: ops}
	}
	return clients
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_RequiresListenAddr(t *testing.T) {
	_, err := server.New(server.Config{}, nil)
	require.Error(t, err)
}

func TestServer_Dispatch(t *testing.T) {
	clients := defaultClients()
	clients[backend.TagKnowledge] = &stubClient{
		tag: backend.TagKnowledge,
		ops: router.DefaultOperations()[backend.TagKnowledge],
		invoke: func(op string, args map[string]any, _ *backend.RequestContext) (any, error) {
			return map[string]any{"op": op, "title": args["title"]}, nil
		},
	}
	srv := newTestServer(t, clients)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/dispatch",
		`{"operation": "store-document", "arguments": {"title": "notes"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Target      string         `json:"target"`
		Description string         `json:"description"`
		Result      map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "graphstore", body.Target)
	assert.Equal(t, "store-document", body.Result["op"])
	assert.Equal(t, "notes", body.Result["title"])
}

func TestServer_DispatchUnknownOperation(t *testing.T) {
	srv := newTestServer(t, defaultClients())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/dispatch",
		`{"operation": "launch-rocket"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "launch-rocket")
}

func TestServer_HealthDegraded(t *testing.T) {
	clients := defaultClients()
	clients[backend.TagVideo] = &stubClient{
		tag:       backend.TagVideo,
		ops:       router.DefaultOperations()[backend.TagVideo],
		healthErr: errProbe,
	}
	srv := newTestServer(t, clients)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health?cache=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string `json:"status"`
		Services map[string]struct {
			Status string `json:"status"`
		} `json:"services"`
		Cache map[string]any `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unhealthy", body.Services["videoflow"].Status)
	assert.Equal(t, "healthy", body.Services["graphstore"].Status)
	assert.Len(t, body.Cache, 5)
}

func TestServer_RouteTable(t *testing.T) {
	srv := newTestServer(t, defaultClients())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/routes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Valid    bool     `json:"valid"`
		Failures []string `json:"failures"`
		Backends []string `json:"backends"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Valid)
	assert.Empty(t, body.Failures)
	assert.Equal(t, []string{"agentmesh", "fileworks", "gateway", "graphstore", "videoflow"}, body.Backends)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultClients())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

var errProbe = errors.New("probe refused")
