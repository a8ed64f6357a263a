// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router

import (
	"fmt"

	"github.com/patchbay-dev/patchbay/internal/backend"
)

// ValidateRoutes verifies the full operation catalogue against the
// classifier and handler registry: every declared operation must classify
// to the backend that owns it and resolve to a handler, and every
// declared dual-backend operation must classify to the fan-out target and
// resolve on both required backends. Returns a validity flag and an
// ordered list of human-readable failures, intended for a startup health
// gate rather than per-request use.
func ValidateRoutes(d *Dispatcher) (bool, []string) {
	var failures []string

	for _, tag := range d.Backends() {
		for _, op := range d.registry.Operations(tag) {
			got, err := d.classifier.Classify(op)
			if err != nil {
				failures = append(failures,
					fmt.Sprintf("operation %q on backend %q is unroutable: %v", op, tag, err))
				continue
			}
			if got != tag && got != backend.TagBoth {
				failures = append(failures,
					fmt.Sprintf("operation %q declared on backend %q classifies to %q", op, tag, got))
				continue
			}
			if got == tag {
				if _, err := d.registry.Resolve(tag, op); err != nil {
					failures = append(failures,
						fmt.Sprintf("operation %q on backend %q has no handler", op, tag))
				}
			}
		}
	}

	for _, op := range d.dualOps {
		got, err := d.classifier.Classify(op)
		if err != nil {
			failures = append(failures,
				fmt.Sprintf("dual-backend operation %q is unroutable: %v", op, err))
			continue
		}
		if got != backend.TagBoth {
			failures = append(failures,
				fmt.Sprintf("dual-backend operation %q classifies to %q instead of fanning out", op, got))
			continue
		}
		for _, tag := range dualBackends {
			if _, err := d.registry.Resolve(tag, op); err != nil {
				failures = append(failures,
					fmt.Sprintf("dual-backend operation %q has no handler on %q", op, tag))
			}
		}
	}

	return len(failures) == 0, failures
}
