// Package app wires configuration, storage and services for both binaries.
package app

import (
	"log/slog"
	"os"

	"orderetl/internal/config"
	"orderetl/internal/currency"
	"orderetl/internal/database"
	"orderetl/internal/metrics"
	"orderetl/internal/publisher"
	"orderetl/internal/repository"
	"orderetl/internal/service"

	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Metrics  *metrics.Registry
	Pipeline service.PipelineService
	RunLogs  service.RunLogService
	KPIs     service.KPIService

	closers []func() error
}

// SetupLogger installs the process-wide JSON logger
func SetupLogger(cfg *config.Config) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// New connects to the database and wires the pipeline. events may be nil.
func New(cfg *config.Config, events service.EventBroadcaster) (*App, error) {
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, DB: db, Metrics: metrics.NewRegistry()}

	// Set up dependencies (Repository -> Service)
	txManager := repository.NewTransactionManager(db)
	persistence := service.NewPersistenceService(
		repository.NewSchemaRepository(db),
		repository.NewProductRepository(db),
		repository.NewOrderRepository(db),
		txManager,
		cfg.DBReset,
	)
	a.RunLogs = service.NewRunLogService(repository.NewRunLogRepository(db))
	a.KPIs = service.NewKPIService(cfg.KPIPath())

	pubs := []publisher.Publisher{publisher.NewFilePublisher(cfg.KPIPath())}
	if cfg.KafkaBrokers != "" {
		kafkaPub := publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaKPITopic)
		pubs = append(pubs, kafkaPub)
		a.closers = append(a.closers, kafkaPub.Close)
		slog.Info("publishing kpis to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaKPITopic)
	}

	a.Pipeline = service.NewPipelineService(
		service.PipelineOptionsFromConfig(cfg),
		currency.NewResolver(cfg.Currency()),
		persistence,
		publisher.MultiPublisher(pubs...),
		a.RunLogs,
		a.Metrics,
		events,
	)
	return a, nil
}

// Close releases publishers and the connection pool
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
