// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package health

import "time"

// Status is the coarse availability classification of a backend or of the
// platform as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Entry is a point-in-time snapshot of one backend's cached probe state.
// All fields are safe to serialize to JSON.
type Entry struct {
	Healthy             bool      `json:"healthy"`
	LastCheckedAt       time.Time `json:"last_checked_at"`
	ConsecutiveFailures uint      `json:"consecutive_failures"`
}

// ServiceStatus is the externally visible health of one backend.
type ServiceStatus struct {
	Status   Status `json:"status"`
	Endpoint string `json:"endpoint"`
	Error    string `json:"error,omitempty"`
}

// Aggregate is the combined health of every routed backend. Status is
// StatusHealthy only when every backend reports healthy, StatusDegraded
// otherwise. Cache optionally carries the raw probe-cache snapshots for
// operator diagnosis.
type Aggregate struct {
	Status    Status                   `json:"status"`
	Services  map[string]ServiceStatus `json:"services"`
	Timestamp time.Time                `json:"timestamp"`
	Cache     map[string]Entry         `json:"cache,omitempty"`
}
