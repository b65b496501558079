package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/masa-finance/liveness-supervisor/internal/config"
)

const HealthCheckPath = "/healthz"
const ReadinessCheckPath = "/readyz"
const MetricsPath = "/metrics"

func isProbePath(path string) bool {
	return path == HealthCheckPath || path == ReadinessCheckPath || path == MetricsPath
}

// APIKeyAuthMiddleware returns an Echo middleware that checks for the API key in the request headers.
func APIKeyAuthMiddleware(cfg config.Configuration) echo.MiddlewareFunc {
	apiKey := cfg.GetString("api_key", "")
	if apiKey == "" {
		// No API key set; allow all requests (no-op)
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isProbePath(c.Request().URL.Path) {
				return next(c)
			}

			// Check Authorization: Bearer <API_KEY> or X-API-Key header
			if c.Request().Header.Get("Authorization") == "Bearer "+apiKey {
				return next(c)
			}
			if c.Request().Header.Get("X-API-Key") == apiKey {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid API key")
		}
	}
}

// HealthMetricsMiddleware counts server errors of the worker-facing endpoints for the
// readiness probe.
func HealthMetricsMiddleware(healthMetrics *HealthMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if isProbePath(path) {
				return next(c)
			}

			err := next(c)

			if strings.HasPrefix(path, "/heartbeat/") || strings.HasPrefix(path, "/register/") || path == "/events" {
				statusCode := c.Response().Status
				if he, ok := err.(*echo.HTTPError); ok {
					statusCode = he.Code
				}
				switch {
				case statusCode >= 500:
					healthMetrics.RecordError()
				case statusCode >= 200 && statusCode < 400:
					healthMetrics.RecordSuccess()
				}
				// 4xx errors are not counted as they indicate client errors
			}

			return err
		}
	}
}
