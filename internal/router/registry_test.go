// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router_test

import (
	"context"
	"testing"

	"github.com/patchbay-dev/patchbay/internal/backend"
	"github.com/patchbay-dev/patchbay/internal/router"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(context.Context, map[string]any, *backend.RequestContext) (any, error) {
	return nil, nil
}

func TestRegistry_Resolve(t *testing.T) {
	reg, err := router.NewRegistry(map[backend.Tag]map[string]router.Handler{
		backend.TagKnowledge: {"store-document": noopHandler},
	}, nil)
	require.NoError(t, err)

	h, err := reg.Resolve(backend.TagKnowledge, "store-document")
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = reg.Resolve(backend.TagKnowledge, "nonexistent")
	require.Error(t, err)
	assert.True(t, pberr.HasCode(err, pberr.CodeRouteRegistryMissingHandler))
	assert.Contains(t, err.Error(), "nonexistent")
	assert.Contains(t, err.Error(), "graphstore")

	_, err = reg.Resolve(backend.TagVideo, "store-document")
	require.Error(t, err, "unknown backend resolves nothing")
}

func TestRegistry_DualBackendValidation(t *testing.T) {
	tables := map[backend.Tag]map[string]router.Handler{
		backend.TagKnowledge:    {"merge-insights": noopHandler},
		backend.TagOrchestrator: {},
	}

	_, err := router.NewRegistry(tables, []string{"merge-insights", "cross-index"})
	require.Error(t, err)
	assert.True(t, pberr.HasCode(err, pberr.CodeRouteConfigInvalid))

	// One aggregated error enumerating every missing pair, never a
	// partial registry.
	msg := err.Error()
	assert.Contains(t, msg, "merge-insights on agentmesh")
	assert.Contains(t, msg, "cross-index on graphstore")
	assert.Contains(t, msg, "cross-index on agentmesh")
	assert.NotContains(t, msg, "merge-insights on graphstore")
}

func TestRegistry_DualBackendValidationPasses(t *testing.T) {
	tables := map[backend.Tag]map[string]router.Handler{
		backend.TagKnowledge:    {"merge-insights": noopHandler},
		backend.TagOrchestrator: {"merge-insights": noopHandler},
	}

	reg, err := router.NewRegistry(tables, []string{"merge-insights"})
	require.NoError(t, err)

	for _, tag := range []backend.Tag{backend.TagKnowledge, backend.TagOrchestrator} {
		_, err := reg.Resolve(tag, "merge-insights")
		assert.NoError(t, err)
	}
}

func TestRegistry_EmptyDualListIsValid(t *testing.T) {
	_, err := router.NewRegistry(map[backend.Tag]map[string]router.Handler{}, nil)
	assert.NoError(t, err)
}
