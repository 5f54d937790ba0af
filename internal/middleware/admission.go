package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/vault-demo-go/internal/kv"
	"github.com/serroba/vault-demo-go/internal/ratelimit"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// Admission returns a huma middleware that rate limits requests per
// (api key, route) before the handler runs. The api key is the bearer
// token taken verbatim from the Authorization header; its content is never
// validated here. Routes can override or disable their limit via operation
// metadata.
func Admission(
	api huma.API,
	limiter *ratelimit.FixedWindowLimiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.GetEndpointConfig(ctx)
		if cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		apiKey, ok := bearerToken(ctx)
		if !ok {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing bearer token")

			return
		}

		route := operationRoute(ctx)
		now := time.Now()

		var (
			decision ratelimit.Decision
			err      error
		)

		if cfg != nil && cfg.Limit > 0 {
			decision, err = limiter.AdmitN(ctx.Context(), apiKey, route, cfg.Limit, now)
		} else {
			decision, err = limiter.Admit(ctx.Context(), apiKey, route, now)
		}

		if err != nil {
			handleAdmitError(api, ctx, err, route, logger)

			return
		}

		if !decision.Allowed {
			retryAfter := decision.RetryAfterSeconds()

			logger.Warn("rate limit exceeded",
				zap.String("route", route),
				zap.Int64("retryAfterSeconds", retryAfter),
				zap.String("clientIp", extractClientIP(ctx)),
			)

			ctx.SetHeader("Retry-After", strconv.FormatInt(retryAfter, 10))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit exceeded, retry in %d seconds", retryAfter))

			return
		}

		next(ctx)
	}
}

func handleAdmitError(api huma.API, ctx huma.Context, err error, route string, logger *zap.Logger) {
	if errors.Is(err, kv.ErrWriterUnavailable) {
		logger.Warn("admission writer busy", zap.String("route", route))
		_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "admission check unavailable, retry the request")

		return
	}

	logger.Error("admission check failed", zap.String("route", route), zap.Error(err))
	_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(ctx huma.Context) (string, bool) {
	auth := ctx.Header("Authorization")
	if len(auth) <= len(bearerPrefix) || !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(auth[len(bearerPrefix):])

	return token, token != ""
}

// operationRoute identifies the route template, so every request matching
// the same operation shares windows per api key.
func operationRoute(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Method + " " + op.Path
	}

	return ctx.Method() + " " + ctx.URL().Path
}
