package client

import (
	"context"
	"net/http"

	"github.com/sweetpotato0/ragdeck/api"
)

// HealthAPI reports backend health.
type HealthAPI struct {
	c *Client
}

// Check returns the backend status and configuration.
func (h *HealthAPI) Check(ctx context.Context) (api.HealthStatus, error) {
	var out api.HealthStatus
	err := h.c.doJSON(ctx, http.MethodGet, "/health", nil, nil, &out, h.c.timeout)
	return out, err
}
