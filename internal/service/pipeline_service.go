package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"orderetl/internal/config"
	"orderetl/internal/csvio"
	"orderetl/internal/metrics"
	"orderetl/internal/model"
	"orderetl/internal/pipeline"
	"orderetl/internal/publisher"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// RateSource resolves the single conversion rate of a run
type RateSource interface {
	Resolve(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// EventBroadcaster fans stage events out to live listeners
type EventBroadcaster interface {
	BroadcastJSON(v any) error
}

const EventTypeStage = "pipeline.stage"

type StageEvent struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id"`
	Stage   string    `json:"stage"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type PipelinePaths struct {
	Products          string
	Orders            string
	Enriched          string
	Converted         string
	ProductQuarantine string
	OrderQuarantine   string
}

type PipelineOptions struct {
	Paths          PipelinePaths
	BaseCurrency   string
	TargetCurrency string
}

func PipelineOptionsFromConfig(cfg *config.Config) PipelineOptions {
	return PipelineOptions{
		Paths: PipelinePaths{
			Products:          cfg.ProductsPath(),
			Orders:            cfg.OrdersPath(),
			Enriched:          cfg.EnrichedPath(),
			Converted:         cfg.ConvertedPath(),
			ProductQuarantine: cfg.ProductQuarantinePath(),
			OrderQuarantine:   cfg.OrderQuarantinePath(),
		},
		BaseCurrency:   cfg.BaseCurrency,
		TargetCurrency: cfg.TargetCurrency,
	}
}

type RunSummary struct {
	RunID             uuid.UUID         `json:"run_id"`
	Status            string            `json:"status"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
	ProductsLoaded    int               `json:"products_loaded"`
	OrdersLoaded      int               `json:"orders_loaded"`
	ProductsRejected  int               `json:"products_rejected"`
	OrdersRejected    int               `json:"orders_rejected"`
	OrphanOrders      int               `json:"orphan_orders"`
	MissingProductIDs []int64           `json:"missing_product_ids,omitempty"`
	Rate              string            `json:"rate,omitempty"`
	KPIs              []model.KPIRecord `json:"kpis,omitempty"`
	Error             string            `json:"error,omitempty"`
}

type PipelineService interface {
	Run(ctx context.Context) (*RunSummary, error)
}

type pipelineService struct {
	opts        PipelineOptions
	rates       RateSource
	persistence PersistenceService
	publisher   publisher.Publisher
	runLogs     RunLogService
	metrics     *metrics.Registry
	events      EventBroadcaster

	mu sync.Mutex
}

// NewPipelineService wires a run. events may be nil when nobody listens.
func NewPipelineService(
	opts PipelineOptions,
	rates RateSource,
	persistence PersistenceService,
	pub publisher.Publisher,
	runLogs RunLogService,
	reg *metrics.Registry,
	events EventBroadcaster,
) PipelineService {
	return &pipelineService{
		opts:        opts,
		rates:       rates,
		persistence: persistence,
		publisher:   pub,
		runLogs:     runLogs,
		metrics:     reg,
		events:      events,
	}
}

// Run executes one batch to completion. Only one run is active at a time;
// a concurrent call gets ErrRunInProgress instead of waiting.
func (s *pipelineService) Run(ctx context.Context) (*RunSummary, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	sum := &RunSummary{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	slog.Info("pipeline run started", "run_id", sum.RunID)

	err := s.execute(ctx, sum)

	sum.FinishedAt = time.Now().UTC()
	s.metrics.RunDuration.Observe(sum.FinishedAt.Sub(sum.StartedAt).Seconds())
	s.metrics.LastRunUnix.Set(float64(sum.FinishedAt.Unix()))

	// the outcome is recorded even when ctx was cancelled mid-run
	logCtx := context.WithoutCancel(ctx)
	if err != nil {
		sum.Status = model.RunStatusFailed
		sum.Error = err.Error()
		s.metrics.Runs.WithLabelValues(sum.Status).Inc()
		s.record(logCtx, sum, model.StageRun, sum.Status, err.Error(), sum)
		return sum, err
	}

	sum.Status = model.RunStatusOK
	if sum.OrphanOrders > 0 {
		sum.Status = model.RunStatusWarning
	}
	s.metrics.Runs.WithLabelValues(sum.Status).Inc()
	s.record(logCtx, sum, model.StageRun, sum.Status, "run finished", sum)
	return sum, nil
}

func (s *pipelineService) execute(ctx context.Context, sum *RunSummary) error {
	paths := s.opts.Paths

	products, err := csvio.ReadProducts(paths.Products)
	if err != nil {
		return s.fail(ctx, sum, model.StageExtract, err)
	}
	sum.ProductsLoaded = len(products)
	orders, err := csvio.ReadOrders(paths.Orders)
	if err != nil {
		return s.fail(ctx, sum, model.StageExtract, err)
	}
	sum.OrdersLoaded = len(orders)
	s.metrics.RowsLoaded.WithLabelValues("products").Add(float64(len(products)))
	s.metrics.RowsLoaded.WithLabelValues("orders").Add(float64(len(orders)))
	s.record(ctx, sum, model.StageExtract, model.RunStatusOK, "sources loaded", map[string]int{
		"products": len(products),
		"orders":   len(orders),
	})

	productSink := csvio.NewProductQuarantine(paths.ProductQuarantine)
	orderSink := csvio.NewOrderQuarantine(paths.OrderQuarantine)
	if err := errors.Join(productSink.Reset(), orderSink.Reset()); err != nil {
		return s.fail(ctx, sum, model.StageClean, err)
	}
	products, rejectedProducts, err := pipeline.Clean[model.Product](products, pipeline.ProductPriceRule, productSink)
	if err != nil {
		return s.fail(ctx, sum, model.StageClean, err)
	}
	orders, rejectedOrders, err := pipeline.Clean[model.Order](orders, pipeline.OrderQuantityRule, orderSink)
	if err != nil {
		return s.fail(ctx, sum, model.StageClean, err)
	}
	sum.ProductsRejected, sum.OrdersRejected = len(rejectedProducts), len(rejectedOrders)
	s.metrics.RowsRejected.WithLabelValues("products").Add(float64(len(rejectedProducts)))
	s.metrics.RowsRejected.WithLabelValues("orders").Add(float64(len(rejectedOrders)))
	s.record(ctx, sum, model.StageClean, model.RunStatusOK, "sources cleaned", map[string]int{
		"products_accepted": len(products),
		"products_rejected": len(rejectedProducts),
		"orders_accepted":   len(orders),
		"orders_rejected":   len(rejectedOrders),
	})

	report := pipeline.CheckReferences(orders, products)
	if report.OK() {
		s.record(ctx, sum, model.StageIntegrity, model.RunStatusOK, "every order references a product", nil)
	} else {
		sum.OrphanOrders = len(report.Orphans)
		sum.MissingProductIDs = report.MissingProductIDs
		s.metrics.Orphans.Add(float64(len(report.Orphans)))
		s.record(ctx, sum, model.StageIntegrity, model.RunStatusWarning,
			fmt.Sprintf("%d orders reference missing products", len(report.Orphans)),
			map[string]any{"missing_product_ids": report.MissingProductIDs})
	}

	enriched := pipeline.Merge(orders, products)
	if err := csvio.WriteEnriched(paths.Enriched, enriched); err != nil {
		return s.fail(ctx, sum, model.StageMerge, err)
	}
	s.record(ctx, sum, model.StageMerge, model.RunStatusOK, "orders enriched", map[string]int{"rows": len(enriched)})

	rate, err := s.rates.Resolve(ctx, s.opts.BaseCurrency, s.opts.TargetCurrency)
	if err != nil {
		return s.fail(ctx, sum, model.StageRate, err)
	}
	sum.Rate = rate.String()
	s.metrics.LastRate.Set(rate.InexactFloat64())
	s.record(ctx, sum, model.StageRate, model.RunStatusOK, "rate resolved", map[string]string{
		"base":   s.opts.BaseCurrency,
		"target": s.opts.TargetCurrency,
		"rate":   sum.Rate,
	})

	converted := pipeline.Convert(enriched, rate)
	if err := csvio.WriteConverted(paths.Converted, converted); err != nil {
		return s.fail(ctx, sum, model.StageConvert, err)
	}
	s.record(ctx, sum, model.StageConvert, model.RunStatusOK, "totals converted", map[string]int{"rows": len(converted)})

	kpis, err := pipeline.ComputeKPIs(converted, products)
	if err != nil {
		return s.fail(ctx, sum, model.StageKPI, err)
	}
	if err := s.publisher.Publish(ctx, sum.RunID, kpis); err != nil {
		return s.fail(ctx, sum, model.StageKPI, err)
	}
	sum.KPIs = kpis
	s.record(ctx, sum, model.StageKPI, model.RunStatusOK, "kpis published", kpis)

	if err := s.persistence.Load(ctx, products, orders); err != nil {
		return s.fail(ctx, sum, model.StagePersist, err)
	}
	s.metrics.RowsPersisted.WithLabelValues("products").Add(float64(len(products)))
	s.metrics.RowsPersisted.WithLabelValues("orders").Add(float64(len(orders)))
	s.record(ctx, sum, model.StagePersist, model.RunStatusOK, "records persisted", map[string]int{
		"products": len(products),
		"orders":   len(orders),
	})
	return nil
}

func (s *pipelineService) fail(ctx context.Context, sum *RunSummary, stage string, err error) error {
	s.record(context.WithoutCancel(ctx), sum, stage, model.RunStatusFailed, err.Error(), nil)
	return fmt.Errorf("%s: %w", stage, err)
}

// record writes the run log entry, logs it and pushes it to live listeners
func (s *pipelineService) record(ctx context.Context, sum *RunSummary, stage, status, message string, details any) {
	level := slog.LevelInfo
	switch status {
	case model.RunStatusWarning:
		level = slog.LevelWarn
	case model.RunStatusFailed:
		level = slog.LevelError
	}
	slog.Log(ctx, level, message, "run_id", sum.RunID, "stage", stage, "status", status)

	s.runLogs.Record(ctx, sum.RunID, stage, status, message, details)

	if s.events == nil {
		return
	}
	event := StageEvent{
		Type:    EventTypeStage,
		RunID:   sum.RunID.String(),
		Stage:   stage,
		Status:  status,
		Message: message,
		At:      time.Now().UTC(),
	}
	if err := s.events.BroadcastJSON(event); err != nil {
		slog.Warn("failed to broadcast stage event", "run_id", sum.RunID, "stage", stage, "error", err)
	}
}
