package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/masa-finance/liveness-supervisor/internal/config"
	"github.com/masa-finance/liveness-supervisor/internal/store"
	"github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

// Dependencies are the components the API serves.
type Dependencies struct {
	Supervisor *supervisor.Supervisor
	// Store backs the ledger, audit and event endpoints. Those answer 503 without it.
	Store store.Store
	// KillSwitch is flipped by the emergency endpoints.
	KillSwitch *supervisor.FlagSwitch
	// Gatherer is exposed on /metrics. Defaults to the Prometheus default gatherer.
	Gatherer prometheus.Gatherer
}

// Start serves the API on listenAddress until ctx is cancelled.
func Start(ctx context.Context, listenAddress string, cfg config.Configuration, deps Dependencies) error {
	e := NewServer(cfg, deps)

	go func() {
		<-ctx.Done()
		if err := e.Close(); err != nil {
			e.Logger.Error("Failed to close Echo server: ", err)
		}
	}()

	e.Logger.Info(fmt.Sprintf("Starting server on %s", listenAddress))
	if err := e.Start(listenAddress); err != nil && err != http.ErrServerClosed {
		e.Logger.Error(err)
		return err
	}
	return nil
}

// NewServer builds the Echo instance with every route registered.
func NewServer(cfg config.Configuration, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	switch strings.ToLower(cfg.GetString("log_level", "info")) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "warn", "warning":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	default:
		e.Logger.SetLevel(log.INFO)
	}

	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	healthMetrics := NewHealthMetrics()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(APIKeyAuthMiddleware(cfg))
	e.Use(HealthMetricsMiddleware(healthMetrics))

	// Health check endpoints (no auth required)
	e.GET(HealthCheckPath, Healthz())
	e.GET(ReadinessCheckPath, Readyz(deps.Supervisor, healthMetrics))
	e.GET(MetricsPath, metricsHandler(deps.Gatherer))

	if cfg.ProfilingEnabled() {
		enableProfiling(e)
	}

	/*
		- GET  /status: supervisor snapshot
		- POST /register/:name: register a worker
		- POST /heartbeat/:name: report a heartbeat
		- POST /events: append to the event log
		- GET  /ledger, /ledger/:name: health ledger
		- GET  /audit: latest audit records
		- POST /emergency/stop, /emergency/clear: kill switch
	*/
	e.GET("/status", status(deps.Supervisor))
	e.POST("/register/:name", register(deps.Supervisor))
	e.POST("/heartbeat/:name", heartbeat(deps.Supervisor))
	e.POST("/events", appendEvent(deps.Store))
	e.GET("/ledger", listLedger(deps.Store))
	e.GET("/ledger/:name", getLedger(deps.Store))
	e.GET("/audit", listAudit(deps.Store))

	emergency := e.Group("/emergency")
	emergency.POST("/stop", setEmergency(deps.KillSwitch, true))
	emergency.POST("/clear", setEmergency(deps.KillSwitch, false))

	return e
}

// enableProfiling registers the pprof endpoints.
func enableProfiling(e *echo.Echo) {
	e.Logger.Info("Enabling profiling - this may impact performance")

	// Sample time in nanoseconds, see https://github.com/DataDog/go-profiler-notes/blob/main/block.md#usage
	runtime.SetBlockProfileRate(500)
	runtime.SetMutexProfileFraction(1)

	pprof.Register(e)
}
