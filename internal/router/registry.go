// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/patchbay-dev/patchbay/internal/backend"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
)

// Handler is one backend operation's invocation closure.
type Handler func(ctx context.Context, args map[string]any, rc *backend.RequestContext) (any, error)

// Registry holds per-backend operation handler tables. Immutable after
// construction, so lookups need no synchronization.
type Registry struct {
	handlers map[backend.Tag]map[string]Handler
}

// dualBackends are the two services a declared dual-backend operation
// must have handlers on.
var dualBackends = [2]backend.Tag{backend.TagKnowledge, backend.TagOrchestrator}

// NewRegistry builds a Registry from per-backend handler tables and
// validates it against the declared dual-backend operation names: each
// one must have a handler on both the knowledge store and the
// orchestrator. Every missing (operation, backend) pair is collected into
// a single configuration error, so a misconfigured table fails startup
// with the complete picture rather than one pair at a time.
func NewRegistry(tables map[backend.Tag]map[string]Handler, dualOps []string) (*Registry, error) {
	handlers := make(map[backend.Tag]map[string]Handler, len(tables))
	for tag, table := range tables {
		ops := make(map[string]Handler, len(table))
		for name, h := range table {
			ops[name] = h
		}
		handlers[tag] = ops
	}

	var missing []string
	for _, op := range dualOps {
		for _, tag := range dualBackends {
			if _, ok := handlers[tag][op]; !ok {
				missing = append(missing, fmt.Sprintf("%s on %s", op, tag))
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, pberr.New(pberr.CodeRouteConfigInvalid,
			"dual-backend operations missing handlers: "+strings.Join(missing, ", "))
	}

	return &Registry{handlers: handlers}, nil
}

// Resolve returns the invocation for (tag, name). The error names both
// the backend and the operation so the caller's diagnostic is actionable.
func (r *Registry) Resolve(tag backend.Tag, name string) (Handler, error) {
	h, ok := r.handlers[tag][name]
	if !ok {
		return nil, pberr.New(pberr.CodeRouteRegistryMissingHandler,
			fmt.Sprintf("no handler for operation %q on backend %q", name, tag),
			pberr.FieldBackend(string(tag)), pberr.FieldOperation(name))
	}
	return h, nil
}

// Operations returns the sorted operation names registered for tag.
func (r *Registry) Operations(tag backend.Tag) []string {
	table := r.handlers[tag]
	ops := make([]string, 0, len(table))
	for name := range table {
		ops = append(ops, name)
	}
	sort.Strings(ops)
	return ops
}

// BuildTables derives handler tables from backend clients: every
// operation a client declares becomes a closure invoking that client.
func BuildTables(clients map[backend.Tag]backend.Client) map[backend.Tag]map[string]Handler {
	tables := make(map[backend.Tag]map[string]Handler, len(clients))
	for tag, client := range clients {
		table := make(map[string]Handler)
		for _, op := range client.Operations() {
			table[op] = invokeHandler(client, op)
		}
		tables[tag] = table
	}
	return tables
}

func invokeHandler(client backend.Client, op string) Handler {
	return func(ctx context.Context, args map[string]any, rc *backend.RequestContext) (any, error) {
		return client.Invoke(ctx, op, args, rc)
	}
}
