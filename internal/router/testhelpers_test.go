// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router_test

import (
	"context"
	"sync/atomic"

	"github.com/patchbay-dev/patchbay/internal/backend"
)

// mockClient is a scriptable backend.Client for router tests.
type mockClient struct {
	tag      backend.Tag
	endpoint string
	ops      []string

	healthErr  error
	probeCount atomic.Int64

	invokeFn    func(ctx context.Context, op string, args map[string]any, rc *backend.RequestContext) (any, error)
	invokeCount atomic.Int64
}

var _ backend.Client = (*mockClient)(nil)

func newMockClient(tag backend.Tag, ops ...string) *mockClient {
	return &mockClient{
		tag:      tag,
		endpoint: "http://" + string(tag) + ".internal:8080",
		ops:      ops,
	}
}

func (m *mockClient) Name() backend.Tag { return m.tag }
func (m *mockClient) Endpoint() string  { return m.endpoint }

func (m *mockClient) CheckHealth(context.Context) error {
	m.probeCount.Add(1)
	return m.healthErr
}

func (m *mockClient) Invoke(ctx context.Context, op string, args map[string]any, rc *backend.RequestContext) (any, error) {
	m.invokeCount.Add(1)
	if m.invokeFn != nil {
		return m.invokeFn(ctx, op, args, rc)
	}
	return map[string]any{"op": op}, nil
}

func (m *mockClient) Operations() []string { return m.ops }
func (m *mockClient) Close() error         { return nil }
