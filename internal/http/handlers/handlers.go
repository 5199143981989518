// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"contextapi/internal/repository"
	"contextapi/internal/service"
	"contextapi/internal/version"
)

// mapServiceError translates service-layer errors to huma status errors.
func mapServiceError(err error) error {
	var connErr *pgconn.ConnectError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return huma.Error404NotFound("article not found")
	case errors.Is(err, service.ErrTooManySectionIDs):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrUnknownBundle):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &connErr):
		return huma.Error503ServiceUnavailable("database unavailable")
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

// HealthHandler serves the health, version, and probe endpoints.
type HealthHandler struct {
	pool *pgxpool.Pool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// HealthCheckOutput represents the health check response.
type HealthCheckOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// HealthCheck pings the database and reports service health.
func (h *HealthHandler) HealthCheck(ctx context.Context, _ *struct{}) (*HealthCheckOutput, error) {
	if err := h.pool.Ping(ctx); err != nil {
		return nil, huma.Error503ServiceUnavailable("database unavailable")
	}
	out := &HealthCheckOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// VersionOutput represents the version response.
type VersionOutput struct {
	Body version.Info
}

// Version returns build information.
func (h *HealthHandler) Version(_ context.Context, _ *struct{}) (*VersionOutput, error) {
	return &VersionOutput{Body: version.Get()}, nil
}

// LivezOutput represents the liveness probe response.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Livez is the liveness probe: the process is up.
func (h *HealthHandler) Livez(_ context.Context, _ *struct{}) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// ReadyzOutput represents the readiness probe response.
type ReadyzOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Readyz is the readiness probe: the database is reachable.
func (h *HealthHandler) Readyz(ctx context.Context, _ *struct{}) (*ReadyzOutput, error) {
	if err := h.pool.Ping(ctx); err != nil {
		return nil, huma.Error503ServiceUnavailable("database unavailable")
	}
	out := &ReadyzOutput{}
	out.Body.Status = "ok"
	return out, nil
}
