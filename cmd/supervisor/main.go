package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/masa-finance/liveness-supervisor/internal/config"
)

func main() {
	cfg := config.ReadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.Fatalf("Supervisor exited: %v", err)
	}
	logrus.Info("Supervisor shut down")
}
