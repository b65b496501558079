package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/store"
	"github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

const defaultAuditLimit = 100

var errNoStore = types.APIError{Error: "no store configured"}

func status(sup *supervisor.Supervisor) func(c echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, sup.Status())
	}
}

// register adds or replaces a worker. Remote workers have no launcher, so they are
// escalated but never restarted by the supervisor.
func register(sup *supervisor.Supervisor) func(c echo.Context) error {
	return func(c echo.Context) error {
		req := types.RegisterRequest{}
		if err := c.Bind(&req); err != nil {
			return err
		}

		criticality, err := types.ParseCriticality(string(req.Criticality))
		if err != nil {
			return c.JSON(http.StatusBadRequest, types.APIError{Error: err.Error()})
		}

		sup.Register(c.Param("name"), criticality, nil)
		return c.JSON(http.StatusOK, types.APIResponse{Status: "registered"})
	}
}

// heartbeat records a heartbeat. The body is optional; an empty status means alive.
func heartbeat(sup *supervisor.Supervisor) func(c echo.Context) error {
	return func(c echo.Context) error {
		req := types.HeartbeatRequest{}
		if c.Request().ContentLength > 0 {
			if err := c.Bind(&req); err != nil {
				return err
			}
		}

		sup.Heartbeat(c.Param("name"), req.Status)
		return c.JSON(http.StatusOK, types.APIResponse{Status: "ok"})
	}
}

func appendEvent(s store.EventLog) func(c echo.Context) error {
	return func(c echo.Context) error {
		if s == nil {
			return c.JSON(http.StatusServiceUnavailable, errNoStore)
		}

		ev := types.Event{}
		if err := c.Bind(&ev); err != nil {
			return err
		}
		if ev.Source == "" {
			return c.JSON(http.StatusBadRequest, types.APIError{Error: "source is required"})
		}
		severity, err := types.ParseSeverity(string(ev.Severity))
		if err != nil {
			return c.JSON(http.StatusBadRequest, types.APIError{Error: err.Error()})
		}
		ev.Severity = severity
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = timeNow()
		}

		if err := s.AppendEvent(c.Request().Context(), ev); err != nil {
			return c.JSON(http.StatusInternalServerError, types.APIError{Error: err.Error()})
		}
		return c.JSON(http.StatusAccepted, types.APIResponse{Status: ev.ID})
	}
}

func listLedger(s store.LedgerStore) func(c echo.Context) error {
	return func(c echo.Context) error {
		if s == nil {
			return c.JSON(http.StatusServiceUnavailable, errNoStore)
		}

		entries, err := s.ListLedgerEntries(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.APIError{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, entries)
	}
}

func getLedger(s store.LedgerStore) func(c echo.Context) error {
	return func(c echo.Context) error {
		if s == nil {
			return c.JSON(http.StatusServiceUnavailable, errNoStore)
		}

		entry, err := s.GetLedgerEntry(c.Request().Context(), c.Param("name"))
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, types.APIError{Error: "Source not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.APIError{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, entry)
	}
}

// listAudit returns the newest audit records first. GET /audit?limit=N
func listAudit(s store.AuditStore) func(c echo.Context) error {
	return func(c echo.Context) error {
		if s == nil {
			return c.JSON(http.StatusServiceUnavailable, errNoStore)
		}

		limit := defaultAuditLimit
		if l := c.QueryParam("limit"); l != "" {
			v, err := strconv.Atoi(l)
			if err != nil {
				return c.JSON(http.StatusBadRequest, types.APIError{Error: "invalid limit"})
			}
			limit = v
		}

		records, err := s.ListAudit(c.Request().Context(), limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.APIError{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, records)
	}
}

// setEmergency flips the kill switch. The supervisor reacts on its next scan.
func setEmergency(kill *supervisor.FlagSwitch, on bool) func(c echo.Context) error {
	return func(c echo.Context) error {
		if kill == nil {
			return c.JSON(http.StatusServiceUnavailable, types.APIError{Error: "no kill switch configured"})
		}

		kill.Set(on)
		if on {
			return c.JSON(http.StatusOK, types.APIResponse{Status: "emergency stop requested"})
		}
		return c.JSON(http.StatusOK, types.APIResponse{Status: "emergency stop cleared"})
	}
}

func metricsHandler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
