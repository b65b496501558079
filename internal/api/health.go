package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// HealthMetrics tracks the error rate of the worker-facing endpoints over a
// rolling window.
type HealthMetrics struct {
	mu             sync.RWMutex
	errorCount     int
	successCount   int
	windowStart    time.Time
	windowDuration time.Duration
	errorThreshold float64
}

func NewHealthMetrics() *HealthMetrics {
	return &HealthMetrics{
		windowStart:    timeNow(),
		windowDuration: 10 * time.Minute,
		errorThreshold: 0.5,
	}
}

func (hm *HealthMetrics) RecordSuccess() {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.rollWindow()
	hm.successCount++
}

func (hm *HealthMetrics) RecordError() {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.rollWindow()
	hm.errorCount++
}

func (hm *HealthMetrics) rollWindow() {
	if timeNow().Sub(hm.windowStart) > hm.windowDuration {
		hm.errorCount = 0
		hm.successCount = 0
		hm.windowStart = timeNow()
	}
}

// IsHealthy reports whether the error rate is below the threshold. No traffic is healthy.
func (hm *HealthMetrics) IsHealthy() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	total := hm.errorCount + hm.successCount
	if total == 0 {
		return true
	}
	return float64(hm.errorCount)/float64(total) < hm.errorThreshold
}

func (hm *HealthMetrics) GetStats() map[string]any {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	total := hm.errorCount + hm.successCount
	errorRate := 0.0
	if total > 0 {
		errorRate = float64(hm.errorCount) / float64(total)
	}

	return map[string]any{
		"error_count":     hm.errorCount,
		"success_count":   hm.successCount,
		"total_count":     total,
		"error_rate":      errorRate,
		"window_start":    hm.windowStart.Format(time.RFC3339),
		"window_duration": hm.windowDuration.String(),
	}
}

// Healthz is the liveness probe endpoint
func Healthz() func(c echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "liveness-supervisor",
		})
	}
}

// Readyz is ready while the scan loop runs, no emergency stop is active and the API
// error rate is healthy.
func Readyz(sup *supervisor.Supervisor, healthMetrics *HealthMetrics) func(c echo.Context) error {
	return func(c echo.Context) error {
		checks := map[string]any{}
		resp := map[string]any{
			"service": "liveness-supervisor",
			"ready":   false,
			"checks":  checks,
		}

		if sup == nil {
			checks["supervisor"] = "not initialized"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}

		st := sup.Status()
		ready := true
		if st.Running {
			checks["supervisor"] = "running"
		} else {
			checks["supervisor"] = "stopped"
			ready = false
		}
		if st.EmergencyActive {
			checks["emergency"] = "active"
			ready = false
		} else {
			checks["emergency"] = "clear"
		}
		if healthMetrics.IsHealthy() {
			checks["error_rate"] = "healthy"
		} else {
			checks["error_rate"] = "unhealthy"
			ready = false
		}
		checks["stats"] = healthMetrics.GetStats()
		resp["ready"] = ready

		if !ready {
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		return c.JSON(http.StatusOK, resp)
	}
}
