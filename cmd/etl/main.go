package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"orderetl/internal/app"
	"orderetl/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}
	app.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, nil)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		return 1
	}
	defer a.Close()

	summary, err := a.Pipeline.Run(ctx)
	if err != nil {
		slog.Error("pipeline run failed", "error", err)
		return 1
	}

	slog.Info("pipeline run finished",
		"run_id", summary.RunID,
		"status", summary.Status,
		"orders", summary.OrdersLoaded,
		"orders_rejected", summary.OrdersRejected,
		"products_rejected", summary.ProductsRejected,
		"orphans", summary.OrphanOrders,
		"rate", summary.Rate,
	)
	for _, kpi := range summary.KPIs {
		slog.Info("kpi", "name", kpi.Name, "value", kpi.Value)
	}
	return 0
}
