// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

// Package admin provides the in-process handlers for reserved admin
// namespaces. Real deployments plug their own cluster/codebase tooling in
// behind router.AdminHandler; this implementation covers the operations
// the dispatch layer can answer from its own state.
package admin

import (
	"context"
	"strings"

	"github.com/patchbay-dev/patchbay/internal/backend"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
)

// StatusReporter is the slice of dispatcher state the admin tools expose.
type StatusReporter interface {
	Backends() []backend.Tag
}

// Tools answers admin-namespace operations in-process.
type Tools struct {
	status StatusReporter
}

// NewTools creates the built-in admin toolset.
func NewTools(status StatusReporter) *Tools {
	return &Tools{status: status}
}

// HandleAdmin executes an admin operation. Unknown admin operations get
// an explicit error rather than falling through to a remote backend.
func (t *Tools) HandleAdmin(_ context.Context, name string, _ map[string]any, _ *backend.RequestContext) (any, error) {
	switch name {
	case "admin-infra-status":
		tags := t.status.Backends()
		backends := make([]string, len(tags))
		for i, tag := range tags {
			backends[i] = string(tag)
		}
		return map[string]any{"backends": backends}, nil
	default:
		return nil, pberr.New(pberr.CodeRouteAdminNotConfigured,
			"admin operation "+name+" is not wired in this deployment (namespace "+namespaceOf(name)+")",
			pberr.FieldOperation(name))
	}
}

func namespaceOf(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) < 2 {
		return "unknown"
	}
	return parts[0] + "-" + parts[1]
}
