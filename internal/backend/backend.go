// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

// Package backend defines the contract every routed compute service
// fulfils at the dispatch boundary: a health probe plus a catalogue of
// named asynchronous operations.
package backend

import (
	"context"
)

// Tag identifies a routing target. The substring tokens used by the
// classifier are derived from these names, so renaming a backend is a
// routing change, not a cosmetic one.
type Tag string

const (
	// TagKnowledge is the knowledge-store service (documents, episodes,
	// entities, domains, retrieval).
	TagKnowledge Tag = "graphstore"

	// TagOrchestrator is the multi-agent orchestration service.
	TagOrchestrator Tag = "agentmesh"

	// TagVideo is the video-processing service.
	TagVideo Tag = "videoflow"

	// TagFile is the file-processing service.
	TagFile Tag = "fileworks"

	// TagGateway is the internal API gateway (code validation, analysis,
	// context injection, sandboxed execution).
	TagGateway Tag = "gateway"

	// TagAdmin marks operations handled in-process by the caller's own
	// admin tooling, never by a remote backend.
	TagAdmin Tag = "admin"

	// TagBoth marks operations that fan out to the knowledge store and
	// the orchestrator simultaneously.
	TagBoth Tag = "both"
)

// Remote reports whether the tag names a single remote backend (as
// opposed to the in-process admin path or a fan-out pseudo-target).
func (t Tag) Remote() bool {
	switch t {
	case TagKnowledge, TagOrchestrator, TagVideo, TagFile, TagGateway:
		return true
	}
	return false
}

// RequestContext carries caller attribution for downstream usage
// accounting. It is threaded explicitly from the inbound call into the
// backend invocation; it is never stored on shared dispatcher state.
type RequestContext struct {
	CallerKeyID string `json:"caller_key_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Tier        string `json:"tier,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Client is the call-and-result contract each backend service exposes.
// Implementations own their transport timeouts; the dispatcher only
// records probe outcomes and rewraps invocation failures.
type Client interface {
	// Name returns the backend tag this client serves.
	Name() Tag

	// Endpoint returns the configured base address, used in diagnostics.
	Endpoint() string

	// CheckHealth probes the backend. A nil return means healthy.
	CheckHealth(ctx context.Context) error

	// Invoke executes a named operation. rc may be nil when the caller
	// supplied no attribution.
	Invoke(ctx context.Context, op string, args map[string]any, rc *RequestContext) (any, error)

	// Operations lists the operation names this backend is known to
	// handle, used to build actionable dispatch errors.
	Operations() []string

	Close() error
}
