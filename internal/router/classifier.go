// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router

import (
	"fmt"
	"strings"

	"github.com/patchbay-dev/patchbay/internal/backend"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
)

// Classifier maps an operation name to its target backend. Classification
// is pure and deterministic: an ordered list of phases, each a list of
// predicates checked top to bottom, where the first match wins.
//
// The phase order is a correctness contract. Later phases match by
// substring, so an exact-match name like "analyze-code" must be claimed
// by the exact phase before the orchestration analysis rule ever sees it.
// Reordering phases silently misroutes traffic.
type Classifier struct {
	// dualOps are operation names declared to fan out to the knowledge
	// store and the orchestrator. Checked after every single-backend
	// phase; empty by default.
	dualOps map[string]struct{}
}

// NewClassifier creates a Classifier with the given declared dual-backend
// operation names (possibly none).
func NewClassifier(dualOps []string) *Classifier {
	set := make(map[string]struct{}, len(dualOps))
	for _, op := range dualOps {
		set[op] = struct{}{}
	}
	return &Classifier{dualOps: set}
}

// Classify resolves name to a backend tag. Unrecognized names produce a
// classification error enumerating representative examples per category.
func (c *Classifier) Classify(name string) (backend.Tag, error) {
	// Phase 1: reserved admin namespaces, handled in-process.
	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(name, prefix) {
			return backend.TagAdmin, nil
		}
	}

	// Phase 2: exact-match names. Must run before any substring phase.
	if tag, ok := exactRoutes[name]; ok {
		return tag, nil
	}

	// Phase 3: knowledge store. "entit" covers entity and entities.
	if containsAny(name, "document", "episode", "entit", "domain", "retrieve") || name == OpRecall {
		return backend.TagKnowledge, nil
	}

	// Phase 4: orchestration.
	if containsAny(name, "orchestrate", "competition", "collaborate") {
		return backend.TagOrchestrator, nil
	}
	// Ownership management: agent/task names, except the backend's own
	// name token, which belongs to no caller-visible operation.
	if containsAny(name, "agent", "task") && !strings.Contains(name, string(backend.TagOrchestrator)) {
		return backend.TagOrchestrator, nil
	}
	// Analysis rule. The validation-name exclusion is mandatory even
	// though phase 2 already claimed those names: the rule must never be
	// able to claim them regardless of evaluation order.
	if name == OpAnalyze || containsAny(name, "synthesize", "pattern", "model") {
		if !isValidationExact(name) {
			return backend.TagOrchestrator, nil
		}
	}

	// Phase 5: video processing.
	if strings.Contains(name, "video") {
		return backend.TagVideo, nil
	}

	// Phase 6: file processing.
	if strings.Contains(name, "file") {
		return backend.TagFile, nil
	}

	// Phase 7: declared dual-backend operations.
	if _, ok := c.dualOps[name]; ok {
		return backend.TagBoth, nil
	}

	return "", unknownOperationError(name)
}

// isValidationExact reports whether name is one of the gateway validation
// names that the orchestration analysis rule is forbidden to claim.
func isValidationExact(name string) bool {
	_, ok := validationExactOps[name]
	return ok
}

func containsAny(name string, tokens ...string) bool {
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}

func unknownOperationError(name string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "unrecognized operation %q; known categories:", name)
	for _, cat := range categoryExamples {
		fmt.Fprintf(&b, " %s (e.g. %s);", cat.category, strings.Join(cat.examples, ", "))
	}
	return pberr.New(pberr.CodeRouteClassifyUnknownOperation,
		strings.TrimSuffix(b.String(), ";"),
		pberr.FieldOperation(name))
}
