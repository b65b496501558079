package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/masa-finance/liveness-supervisor/internal/api"
	"github.com/masa-finance/liveness-supervisor/internal/config"
	"github.com/masa-finance/liveness-supervisor/internal/dependency"
	"github.com/masa-finance/liveness-supervisor/internal/health"
	"github.com/masa-finance/liveness-supervisor/internal/metrics"
	"github.com/masa-finance/liveness-supervisor/internal/store"
	"github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

// run wires the store, the supervisor and the API, and blocks until ctx is cancelled
// or the API fails.
func run(ctx context.Context, cfg config.Configuration) error {
	driver, dsn := cfg.StoreConfig()
	st, err := store.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("error opening %s store: %w", driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logrus.Errorf("Error closing store: %v", err)
		}
	}()
	logrus.Infof("Using %s store", driver)

	kill := supervisor.NewFlagSwitch()
	sup, err := newSupervisor(cfg, st, kill, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	startManagedWorkers(ctx, sup, cfg.ManagedWorkers())

	g, ctx := errgroup.WithContext(ctx)

	sup.Start(ctx)
	g.Go(func() error {
		<-ctx.Done()
		sup.Stop()
		return nil
	})
	g.Go(func() error {
		return api.Start(ctx, cfg.ListenAddress(), cfg, api.Dependencies{
			Supervisor: sup,
			Store:      st,
			KillSwitch: kill,
			Gatherer:   prometheus.DefaultGatherer,
		})
	})

	return g.Wait()
}

func newSupervisor(cfg config.Configuration, st store.Store, kill *supervisor.FlagSwitch, reg prometheus.Registerer) (*supervisor.Supervisor, error) {
	var killSwitch supervisor.Switch = kill
	if path := cfg.GetString("emergency_stop_file", ""); path != "" {
		killSwitch = supervisor.AnySwitch{kill, supervisor.FileSwitch{Path: path}}
	}

	opts := []supervisor.Option{
		supervisor.WithStore(st),
		supervisor.WithKillSwitch(killSwitch),
		supervisor.WithMetrics(metrics.NewPrometheus(reg, "supervisor")),
	}

	if path := cfg.GetString("rest_flag_file", ""); path != "" {
		opts = append(opts, supervisor.WithRestCondition(supervisor.FileSwitch{Path: path}))
	}

	if url := cfg.GetString("dependency_url", ""); url != "" {
		dep, err := dependency.NewHTTP(url, cfg.GetString("dependency_reset_url", ""))
		if err != nil {
			return nil, err
		}
		opts = append(opts, supervisor.WithDependency(dep))
		logrus.Infof("Watching dependency %s", url)
	}

	return supervisor.New(cfg.SupervisorConfig(), opts...), nil
}

// startManagedWorkers registers and launches every worker the supervisor owns. A worker
// that fails to start stays registered and is restarted once its silence crosses the
// restart threshold.
func startManagedWorkers(ctx context.Context, sup *supervisor.Supervisor, workers []config.ManagedWorker) {
	for _, w := range workers {
		launcher := health.CommandLauncher(w.Command[0], w.Command[1:]...)
		sup.Register(w.Name, w.Criticality, launcher)

		h, err := launcher(ctx)
		if err != nil {
			logrus.Errorf("Failed to start worker %s: %v", w.Name, err)
			continue
		}
		sup.Attach(w.Name, h)
	}
}
