// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router

import (
	"github.com/patchbay-dev/patchbay/internal/backend"
)

// Exact-match operation names. These are wire-visible identifiers: they
// must be matched by full string equality before any substring phase runs,
// because several of them would otherwise be claimed by a later rule.
const (
	OpValidateCode     = "validate-code"
	OpAnalyzeCode      = "analyze-code"
	OpStaticAnalysis   = "static-analysis"
	OpInjectContext    = "inject-context"
	OpExecuteLearn     = "execute-learn"
	OpExecuteSandboxed = "execute-sandboxed"

	OpHealthCheck = "health-check"

	OpGetStats           = "get-stats"
	OpClearAllData       = "clear-all-data"
	OpIngestURL          = "ingest-url"
	OpConfirmURLIngest   = "confirm-url-ingestion"
	OpValidateURL        = "validate-url"
	OpURLIngestionStatus = "url-ingestion-status"

	// OpRecall is the fixed retrieval alias for the knowledge store.
	OpRecall = "recall"

	// OpAnalyze is the orchestrator's deep-analysis operation. Matched
	// exactly by the orchestration analysis rule, never by substring.
	OpAnalyze = "analyze"
)

// adminPrefixes are the reserved admin namespaces. Operations under them
// are handled in-process by the caller and bypass all health checks.
var adminPrefixes = []string{
	"admin-k8s-",   // cluster control
	"admin-repo-",  // codebase access
	"admin-infra-", // infrastructure
	"admin-chat-",  // chat history
}

// exactRoutes maps every exact-match operation to its target. Checked
// before all substring phases.
var exactRoutes = map[string]backend.Tag{
	OpValidateCode:     backend.TagGateway,
	OpAnalyzeCode:      backend.TagGateway,
	OpStaticAnalysis:   backend.TagGateway,
	OpInjectContext:    backend.TagGateway,
	OpExecuteLearn:     backend.TagGateway,
	OpExecuteSandboxed: backend.TagGateway,

	OpHealthCheck: backend.TagBoth,

	OpGetStats:           backend.TagKnowledge,
	OpClearAllData:       backend.TagKnowledge,
	OpIngestURL:          backend.TagKnowledge,
	OpConfirmURLIngest:   backend.TagKnowledge,
	OpValidateURL:        backend.TagKnowledge,
	OpURLIngestionStatus: backend.TagKnowledge,
}

// validationExactOps are the gateway validation/analysis names that the
// orchestration analysis rule must never claim (see classifier.go).
var validationExactOps = map[string]struct{}{
	OpValidateCode:   {},
	OpAnalyzeCode:    {},
	OpStaticAnalysis: {},
}

// DefaultOperations returns the catalogue of operations each backend is
// known to handle. Used to build the handler registry and the startup
// validation sweep; config may extend (never shrink) these sets.
func DefaultOperations() map[backend.Tag][]string {
	return map[backend.Tag][]string{
		backend.TagKnowledge: {
			OpGetStats, OpClearAllData,
			OpIngestURL, OpConfirmURLIngest, OpValidateURL, OpURLIngestionStatus,
			OpRecall,
			"store-document", "search-documents", "list-episodes",
			"get-entity", "link-entities", "list-domains", "retrieve-context",
		},
		backend.TagOrchestrator: {
			OpAnalyze,
			"orchestrate-run", "start-competition", "collaborate-session",
			"spawn-agent", "list-agents", "create-task", "get-task-status",
			"synthesize-report", "detect-patterns", "build-model",
		},
		backend.TagVideo: {
			"video-transcode", "video-extract-frames", "video-summarize",
		},
		backend.TagFile: {
			"file-upload", "file-convert", "file-extract-text",
		},
		backend.TagGateway: {
			OpValidateCode, OpAnalyzeCode, OpStaticAnalysis,
			OpInjectContext, OpExecuteLearn, OpExecuteSandboxed,
		},
	}
}

// categoryExamples feeds the "unrecognized operation" error so a caller
// can self-diagnose a typo against a representative name per category.
var categoryExamples = []struct {
	category string
	examples []string
}{
	{"admin", []string{"admin-k8s-restart", "admin-repo-sync", "admin-infra-status", "admin-chat-export"}},
	{"gateway (exact)", []string{OpValidateCode, OpAnalyzeCode, OpStaticAnalysis, OpExecuteSandboxed}},
	{"knowledge store", []string{"store-document", "list-episodes", "get-entity", "retrieve-context", OpRecall}},
	{"orchestration", []string{"orchestrate-run", "spawn-agent", "create-task", OpAnalyze, "synthesize-report"}},
	{"video processing", []string{"video-transcode"}},
	{"file processing", []string{"file-convert"}},
}
