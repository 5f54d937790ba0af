package ratelimit

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// DefaultWindow is the window length used when none is configured.
const DefaultWindow = time.Minute

// Policy holds the admission limits: one window length shared by every
// route, and a call limit per route template with a fallback default.
type Policy struct {
	Window  time.Duration
	Default int64
	Routes  map[string]int64
}

// NewPolicy creates a policy with the given window length and default limit.
func NewPolicy(window time.Duration, defaultLimit int64) *Policy {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Policy{
		Window:  window,
		Default: defaultLimit,
		Routes:  make(map[string]int64),
	}
}

// SetRouteLimit configures the call limit for a route template.
func (p *Policy) SetRouteLimit(route string, limit int64) {
	p.Routes[route] = limit
}

// LimitFor returns the call limit for a route, falling back to the default.
func (p *Policy) LimitFor(route string) int64 {
	if limit, ok := p.Routes[route]; ok {
		return limit
	}

	return p.Default
}

// MetadataKey is the key used to carry rate limit config in huma operation
// metadata.
const MetadataKey = "rateLimit"

// EndpointConfig defines per-endpoint rate limit configuration, attached to
// huma operations via the Metadata field.
type EndpointConfig struct {
	// Limit is the calls allowed per window for this route. Zero falls back
	// to the policy default.
	Limit int64

	// Disabled skips admission control entirely for this endpoint.
	Disabled bool
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}
