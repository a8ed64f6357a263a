// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/patchbay-dev/patchbay/internal/backend"
	"github.com/patchbay-dev/patchbay/internal/router"
	pberr "github.com/patchbay-dev/patchbay/pkg/errors"
	"github.com/patchbay-dev/patchbay/pkg/health"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "dispatch",
		Method:      http.MethodPost,
		Path:        "/v1/dispatch",
		Summary:     "Route and invoke an operation",
		Tags:        []string{"dispatch"},
	}, s.handleDispatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "aggregate-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Aggregate platform health",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "route-table",
		Method:      http.MethodGet,
		Path:        "/v1/routes",
		Summary:     "Routing-table validation report",
		Tags:        []string{"system"},
	}, s.handleRouteTable)
}

type dispatchInput struct {
	Body struct {
		Operation       string                  `json:"operation" doc:"Operation name to route"`
		Arguments       map[string]any          `json:"arguments,omitempty" doc:"Opaque operation arguments"`
		SkipHealthCheck bool                    `json:"skip_health_check,omitempty" doc:"Bypass the backend health probe"`
		Context         *backend.RequestContext `json:"context,omitempty" doc:"Caller attribution"`
	}
}

type dispatchBody struct {
	Target      string `json:"target" doc:"Backend the operation routed to"`
	Description string `json:"description"`
	Result      any    `json:"result"`
}

type dispatchOutput struct {
	Body dispatchBody
}

func (s *Server) handleDispatch(ctx context.Context, input *dispatchInput) (*dispatchOutput, error) {
	decision, err := s.dispatcher.Route(ctx, router.Request{
		Name:            input.Body.Operation,
		Arguments:       input.Body.Arguments,
		SkipHealthCheck: input.Body.SkipHealthCheck,
		Context:         input.Body.Context,
	})
	if err != nil {
		return nil, huma.NewError(pberr.HTTPStatus(err), err.Error())
	}

	result, err := decision.Invoke(ctx)
	if err != nil {
		return nil, huma.NewError(pberr.HTTPStatus(err), err.Error())
	}

	return &dispatchOutput{Body: dispatchBody{
		Target:      string(decision.Target),
		Description: decision.Description,
		Result:      result,
	}}, nil
}

type healthInput struct {
	Cache bool `query:"cache" doc:"Include raw probe-cache snapshots"`
}

type healthOutput struct {
	Body health.Aggregate
}

func (s *Server) handleHealth(ctx context.Context, input *healthInput) (*healthOutput, error) {
	agg := s.dispatcher.AggregateHealth(ctx, input.Cache)
	return &healthOutput{Body: *agg}, nil
}

type routeTableBody struct {
	Valid    bool     `json:"valid"`
	Failures []string `json:"failures,omitempty"`
	Backends []string `json:"backends"`
}

type routeTableOutput struct {
	Body routeTableBody
}

func (s *Server) handleRouteTable(_ context.Context, _ *struct{}) (*routeTableOutput, error) {
	valid, failures := router.ValidateRoutes(s.dispatcher)

	tags := s.dispatcher.Backends()
	backends := make([]string, len(tags))
	for i, tag := range tags {
		backends[i] = string(tag)
	}

	return &routeTableOutput{Body: routeTableBody{
		Valid:    valid,
		Failures: failures,
		Backends: backends,
	}}, nil
}
