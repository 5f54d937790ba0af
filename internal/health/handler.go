package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/vault-demo-go/internal/ratelimit"
	"github.com/serroba/vault-demo-go/internal/vault"
)

// Checker defines the interface for checking a dependency's health.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to the Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Handler handles health check operations.
type Handler struct {
	redis Checker
	repo  vault.Repository
}

// NewHandler creates a new health handler.
func NewHandler(redis Checker, repo vault.Repository) *Handler {
	return &Handler{redis: redis, repo: repo}
}

// Response is the response for the health check endpoint.
type Response struct {
	Body struct {
		Status string `json:"status"`
		Redis  string `json:"redis"`
		Items  int    `json:"items"`
	}
}

// Check reports the state of the service and its dependencies. The vault
// item count doubles as a liveness probe for the store's read path.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"

	if err := h.redis.Ping(ctx); err != nil {
		resp.Body.Redis = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Redis = "healthy"
	}

	items, err := h.repo.List(ctx)
	if err != nil {
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Items = len(items)
	}

	return resp, nil
}

// RegisterRoutes registers health check routes. Health is exempt from
// admission so probes never need a bearer token.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Check)
}
