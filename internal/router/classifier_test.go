// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router_test

import (
	"testing"

	"github.com/patchbay-dev/patchbay/internal/backend"
	"github.com/patchbay-dev/patchbay/internal/router"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_PhaseRouting(t *testing.T) {
	c := router.NewClassifier(nil)

	tests := []struct {
		name string
		op   string
		want backend.Tag
	}{
		// Admin namespaces bypass everything else.
		{"admin cluster control", "admin-k8s-restart", backend.TagAdmin},
		{"admin codebase access", "admin-repo-sync", backend.TagAdmin},
		{"admin infrastructure", "admin-infra-status", backend.TagAdmin},
		{"admin chat history", "admin-chat-export", backend.TagAdmin},

		// Exact matches claimed before any substring phase.
		{"code validation", "validate-code", backend.TagGateway},
		{"code analysis validation", "analyze-code", backend.TagGateway},
		{"static analysis", "static-analysis", backend.TagGateway},
		{"context injection", "inject-context", backend.TagGateway},
		{"execution learning", "execute-learn", backend.TagGateway},
		{"sandboxed execution", "execute-sandboxed", backend.TagGateway},
		{"health aggregation", "health-check", backend.TagBoth},
		{"stats", "get-stats", backend.TagKnowledge},
		{"clear data", "clear-all-data", backend.TagKnowledge},
		{"url ingestion", "ingest-url", backend.TagKnowledge},
		{"url ingestion confirm", "confirm-url-ingestion", backend.TagKnowledge},
		{"url validation", "validate-url", backend.TagKnowledge},
		{"url ingestion status", "url-ingestion-status", backend.TagKnowledge},

		// Knowledge-store substrings.
		{"document", "store-document", backend.TagKnowledge},
		{"episode", "list-episodes", backend.TagKnowledge},
		{"entity singular", "get-entity", backend.TagKnowledge},
		{"entity plural", "link-entities", backend.TagKnowledge},
		{"domain", "list-domains", backend.TagKnowledge},
		{"retrieve", "retrieve-context", backend.TagKnowledge},
		{"retrieval alias", "recall", backend.TagKnowledge},

		// Orchestration substrings.
		{"orchestrate", "orchestrate-run", backend.TagOrchestrator},
		{"competition", "start-competition", backend.TagOrchestrator},
		{"collaborate", "collaborate-session", backend.TagOrchestrator},
		{"agent ownership", "spawn-agent", backend.TagOrchestrator},
		{"task ownership", "create-task", backend.TagOrchestrator},
		{"deep analysis exact", "analyze", backend.TagOrchestrator},
		{"synthesize", "synthesize-report", backend.TagOrchestrator},
		{"pattern", "detect-patterns", backend.TagOrchestrator},
		{"model", "build-model", backend.TagOrchestrator},

		// Backend-name token phases.
		{"video", "video-transcode", backend.TagVideo},
		{"file", "file-convert", backend.TagFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := router.NewClassifier([]string{"merge-insights"})

	for _, op := range []string{"analyze", "analyze-code", "spawn-agent", "merge-insights", "video-transcode"} {
		first, err := c.Classify(op)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			got, err := c.Classify(op)
			require.NoError(t, err)
			assert.Equal(t, first, got, "classification of %q must be stable", op)
		}
	}
}

// The exact-match phase must win over the later analysis substring rule:
// "analyze-code" is a validation name even though it contains "analyze".
func TestClassifier_ExactPhasePrecedence(t *testing.T) {
	c := router.NewClassifier(nil)

	validate, err := c.Classify("validate-code")
	require.NoError(t, err)
	analyzeCode, err := c.Classify("analyze-code")
	require.NoError(t, err)
	analyze, err := c.Classify("analyze")
	require.NoError(t, err)

	assert.Equal(t, validate, analyzeCode, "both validation names route to the same backend")
	assert.Equal(t, backend.TagGateway, analyzeCode)
	assert.Equal(t, backend.TagOrchestrator, analyze)
	assert.NotEqual(t, analyzeCode, analyze)
}

func TestClassifier_OwnershipRuleExcludesBackendName(t *testing.T) {
	c := router.NewClassifier(nil)

	_, err := c.Classify("agentmesh")
	require.Error(t, err, "the backend's own name is not an operation")

	got, err := c.Classify("list-agents")
	require.NoError(t, err)
	assert.Equal(t, backend.TagOrchestrator, got)
}

func TestClassifier_DualBackendOps(t *testing.T) {
	c := router.NewClassifier([]string{"merge-insights"})

	got, err := c.Classify("merge-insights")
	require.NoError(t, err)
	assert.Equal(t, backend.TagBoth, got)

	// Without the declaration the same name is unroutable.
	_, err = router.NewClassifier(nil).Classify("merge-insights")
	require.Error(t, err)
}

func TestClassifier_UnknownOperation(t *testing.T) {
	c := router.NewClassifier(nil)

	_, err := c.Classify("frobnicate")
	require.Error(t, err)
	assert.True(t, pberr.HasCode(err, pberr.CodeRouteClassifyUnknownOperation))

	// The error is example-driven: a caller should be able to spot a
	// typo by comparing against each category's representative names.
	msg := err.Error()
	for _, want := range []string{"admin-k8s-restart", "validate-code", "store-document", "orchestrate-run", "video-transcode", "file-convert"} {
		assert.Contains(t, msg, want)
	}
}
