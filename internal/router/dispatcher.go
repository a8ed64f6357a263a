// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/patchbay-dev/patchbay/internal/backend"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/patchbay-dev/patchbay/pkg/health"
)

// Request is one inbound operation to be routed.
type Request struct {
	Name            string
	Arguments       map[string]any
	SkipHealthCheck bool

	// Context carries caller attribution. It is captured into the
	// returned invocation closure and passed to the backend as an
	// explicit argument; it is never stored on the dispatcher.
	Context *backend.RequestContext
}

// Decision is the outcome of routing one request. Invoke is called
// exactly once by the caller and the Decision discarded afterwards.
type Decision struct {
	Target              backend.Tag
	Description         string
	HealthCheckRequired bool
	Invoke              func(ctx context.Context) (any, error)
}

// AdminHandler executes reserved admin-namespace operations in-process.
// Admin operations never touch a remote backend or the health monitor.
type AdminHandler interface {
	HandleAdmin(ctx context.Context, name string, args map[string]any, rc *backend.RequestContext) (any, error)
}

// BranchOutcome is one backend's independently captured result in a
// fan-out. Exactly one of Result or Error is meaningful.
type BranchOutcome struct {
	Backend backend.Tag `json:"backend"`
	Result  any         `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DispatcherConfig holds the dispatcher's collaborators.
type DispatcherConfig struct {
	Clients map[backend.Tag]backend.Client

	// DualBackendOps declares operations that fan out to the knowledge
	// store and the orchestrator. Empty is valid; the completeness
	// validation still runs so a future entry fails fast.
	DualBackendOps []string

	// Admin handles admin-namespace operations in-process. Optional;
	// when nil, admin operations fail at invocation with a clear error.
	Admin AdminHandler

	Monitor *Monitor
	Logger  *slog.Logger
}

// Dispatcher combines classification, health checking, and handler
// resolution into routing decisions.
type Dispatcher struct {
	clients    map[backend.Tag]backend.Client
	classifier *Classifier
	registry   *Registry
	monitor    *Monitor
	admin      AdminHandler
	dualOps    []string
	log        *slog.Logger
}

// NewDispatcher validates the routing table and constructs a Dispatcher.
// A declared dual-backend operation missing a handler on either required
// backend fails construction; it must never surface at first use.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if len(cfg.Clients) == 0 {
		return nil, pberr.New(pberr.CodeRouteConfigInvalid, "at least one backend client is required")
	}
	for tag, client := range cfg.Clients {
		if !tag.Remote() {
			return nil, pberr.New(pberr.CodeRouteConfigInvalid,
				fmt.Sprintf("tag %q is not a remote backend", tag))
		}
		if client == nil {
			return nil, pberr.New(pberr.CodeRouteConfigInvalid,
				"nil client for backend "+string(tag), pberr.FieldBackend(string(tag)))
		}
	}

	registry, err := NewRegistry(BuildTables(cfg.Clients), cfg.DualBackendOps)
	if err != nil {
		return nil, err
	}

	monitor := cfg.Monitor
	if monitor == nil {
		monitor = NewMonitor(MonitorConfig{}, cfg.Logger)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		clients:    cfg.Clients,
		classifier: NewClassifier(cfg.DualBackendOps),
		registry:   registry,
		monitor:    monitor,
		admin:      cfg.Admin,
		dualOps:    append([]string(nil), cfg.DualBackendOps...),
		log:        log,
	}, nil
}

// Classifier exposes the dispatcher's classifier for validation tooling.
func (d *Dispatcher) Classifier() *Classifier { return d.classifier }

// SetAdmin installs the in-process admin handler. Call during wiring,
// before the dispatcher starts serving requests; admin tools often
// report over dispatcher state, which makes them impossible to pass to
// NewDispatcher.
func (d *Dispatcher) SetAdmin(h AdminHandler) { d.admin = h }

// Monitor exposes the health probe cache.
func (d *Dispatcher) Monitor() *Monitor { return d.monitor }

// Route classifies req, consults the health cache (unless skipped or
// admin), resolves the handler, and returns a Decision whose Invoke
// rewraps any backend failure with diagnostic context. An unhealthy
// backend does not block routing: the call proceeds and fails at the
// call site with a clear error instead of being swallowed upstream.
func (d *Dispatcher) Route(ctx context.Context, req Request) (*Decision, error) {
	if req.Name == "" {
		return nil, pberr.New(pberr.CodeRouteDispatchInvalidInput, "operation name is required")
	}

	tag, err := d.classifier.Classify(req.Name)
	if err != nil {
		recordDispatch("none", "unknown_operation")
		return nil, err
	}

	switch tag {
	case backend.TagAdmin:
		return d.adminDecision(req), nil
	case backend.TagBoth:
		return d.fanOutDecision(ctx, req)
	default:
		return d.backendDecision(ctx, tag, req)
	}
}

func (d *Dispatcher) adminDecision(req Request) *Decision {
	name, args, rc := req.Name, req.Arguments, req.Context
	return &Decision{
		Target:              backend.TagAdmin,
		Description:         fmt.Sprintf("in-process admin operation %q", name),
		HealthCheckRequired: false,
		Invoke: func(ctx context.Context) (any, error) {
			if d.admin == nil {
				return nil, pberr.New(pberr.CodeRouteAdminNotConfigured,
					"no admin handler configured", pberr.FieldOperation(name))
			}
			out, err := d.admin.HandleAdmin(ctx, name, args, rc)
			if err != nil {
				recordDispatch(backend.TagAdmin, "failure")
				return nil, err
			}
			recordDispatch(backend.TagAdmin, "success")
			return out, nil
		},
	}
}

func (d *Dispatcher) backendDecision(ctx context.Context, tag backend.Tag, req Request) (*Decision, error) {
	client, ok := d.clients[tag]
	if !ok {
		return nil, pberr.New(pberr.CodeBackendNotFound,
			"no client registered for backend "+string(tag),
			pberr.FieldBackend(string(tag)), pberr.FieldOperation(req.Name))
	}

	if !req.SkipHealthCheck {
		if healthy := d.monitor.IsHealthy(ctx, client); !healthy {
			// Best-effort routing: log and proceed so the call fails at
			// the call site with an actionable error.
			d.log.Warn("routing to unhealthy backend",
				"backend", tag, "operation", req.Name, "endpoint", client.Endpoint())
		}
	}

	handler, err := d.registry.Resolve(tag, req.Name)
	if err != nil {
		recordDispatch(tag, "missing_handler")
		return nil, err
	}

	name, args, rc := req.Name, req.Arguments, req.Context
	return &Decision{
		Target:              tag,
		Description:         fmt.Sprintf("%s operation %q", tag, name),
		HealthCheckRequired: !req.SkipHealthCheck,
		Invoke: func(ctx context.Context) (any, error) {
			out, err := handler(ctx, args, rc)
			if err != nil {
				recordDispatch(tag, "failure")
				return nil, d.wrapInvokeError(err, tag, name, client)
			}
			recordDispatch(tag, "success")
			return out, nil
		},
	}, nil
}

// wrapInvokeError enriches a backend invocation failure with the
// operation, backend identity and endpoint, and a sample of operations
// known to work on that backend. This is what caller-facing diagnostics
// are built from; the original error stays in the chain.
func (d *Dispatcher) wrapInvokeError(err error, tag backend.Tag, name string, client backend.Client) error {
	sample := d.registry.Operations(tag)
	if len(sample) > 5 {
		sample = sample[:5]
	}
	return pberr.Wrap(err, pberr.CodeRouteDispatchBackendFailure,
		fmt.Sprintf("operation %q failed on backend %q (%s); known-good operations include: %s",
			name, tag, client.Endpoint(), strings.Join(sample, ", ")),
		pberr.FieldBackend(string(tag)),
		pberr.FieldOperation(name),
		pberr.FieldEndpoint(client.Endpoint()))
}

// fanOutDecision routes an aggregate operation. The health aggregation
// operation returns the combined platform health; declared dual-backend
// operations invoke the same operation on the knowledge store and the
// orchestrator concurrently with per-branch outcome capture.
func (d *Dispatcher) fanOutDecision(ctx context.Context, req Request) (*Decision, error) {
	if req.Name == OpHealthCheck {
		return &Decision{
			Target:              backend.TagBoth,
			Description:         "aggregate platform health",
			HealthCheckRequired: false,
			Invoke: func(ctx context.Context) (any, error) {
				return d.AggregateHealth(ctx, true), nil
			},
		}, nil
	}

	// A dual-backend route is health-checked like any other non-admin
	// route: one cached probe per target, warn-and-proceed on unhealthy.
	if !req.SkipHealthCheck {
		for _, tag := range dualBackends {
			client, ok := d.clients[tag]
			if !ok {
				continue
			}
			if healthy := d.monitor.IsHealthy(ctx, client); !healthy {
				d.log.Warn("routing to unhealthy backend",
					"backend", tag, "operation", req.Name, "endpoint", client.Endpoint())
			}
		}
	}

	// Registry construction already validated both handlers exist;
	// resolve here so a Decision never carries a nil branch.
	handlers := make([]Handler, len(dualBackends))
	for i, tag := range dualBackends {
		h, err := d.registry.Resolve(tag, req.Name)
		if err != nil {
			return nil, err
		}
		handlers[i] = h
	}

	name, args, rc := req.Name, req.Arguments, req.Context
	return &Decision{
		Target:              backend.TagBoth,
		Description:         fmt.Sprintf("dual-backend operation %q", name),
		HealthCheckRequired: !req.SkipHealthCheck,
		Invoke: func(ctx context.Context) (any, error) {
			outcomes := make([]BranchOutcome, len(dualBackends))
			var wg sync.WaitGroup
			for i, tag := range dualBackends {
				wg.Add(1)
				go func(i int, tag backend.Tag, h Handler) {
					defer wg.Done()
					outcomes[i].Backend = tag
					out, err := h(ctx, args, rc)
					if err != nil {
						// Captured per branch: one backend failing must
						// not discard the other's result.
						outcomes[i].Error = err.Error()
						recordDispatch(tag, "failure")
						return
					}
					outcomes[i].Result = out
					recordDispatch(tag, "success")
				}(i, tag, handlers[i])
			}
			wg.Wait()
			return outcomes, nil
		},
	}, nil
}

// AggregateHealth probes every registered backend concurrently through
// the health cache and combines the outcomes: healthy only if all
// backends are healthy, degraded otherwise. When includeCache is set the
// raw cache snapshots ride along for operator diagnosis.
func (d *Dispatcher) AggregateHealth(ctx context.Context, includeCache bool) *health.Aggregate {
	type probeResult struct {
		tag      backend.Tag
		endpoint string
		healthy  bool
	}

	results := make([]probeResult, 0, len(d.clients))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, client := range d.clients {
		wg.Add(1)
		go func(client backend.Client) {
			defer wg.Done()
			healthy := d.monitor.IsHealthy(ctx, client)
			mu.Lock()
			results = append(results, probeResult{
				tag:      client.Name(),
				endpoint: client.Endpoint(),
				healthy:  healthy,
			})
			mu.Unlock()
		}(client)
	}
	wg.Wait()

	agg := &health.Aggregate{
		Status:    health.StatusHealthy,
		Services:  make(map[string]health.ServiceStatus, len(results)),
		Timestamp: d.monitor.now(),
	}
	for _, r := range results {
		status := health.StatusHealthy
		if !r.healthy {
			status = health.StatusUnhealthy
			agg.Status = health.StatusDegraded
		}
		agg.Services[string(r.tag)] = health.ServiceStatus{
			Status:   status,
			Endpoint: r.endpoint,
		}
	}
	if includeCache {
		agg.Cache = d.monitor.SnapshotAll()
	}
	return agg
}

// Operations returns the sorted operation names registered for tag.
func (d *Dispatcher) Operations(tag backend.Tag) []string {
	return d.registry.Operations(tag)
}

// Backends returns the registered remote backend tags, sorted.
func (d *Dispatcher) Backends() []backend.Tag {
	tags := make([]backend.Tag, 0, len(d.clients))
	for tag := range d.clients {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Close shuts down every backend client.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, client := range d.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return pberr.Join(errs...)
	}
	return nil
}
