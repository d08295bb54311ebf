package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orderetl/internal/model"
	"orderetl/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrPersistenceConstraint = errors.New("persistence constraint violated")
	ErrPartialLoad           = errors.New("row count mismatch after insert")
)

// ConstraintError reports a rejected insert with enough context to find the bad rows
type ConstraintError struct {
	Table string
	Rows  int
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: insert %d rows into %s: %v", ErrPersistenceConstraint, e.Rows, e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() []error { return []error{ErrPersistenceConstraint, e.Err} }

func isConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated)
}

type PersistenceService interface {
	Load(ctx context.Context, products []model.Product, orders []model.Order) error
}

type persistenceService struct {
	schemaRepo  repository.SchemaRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	txManager   repository.TransactionManager
	reset       bool
}

// NewPersistenceService wires the loader. With reset set, both tables are
// dropped before every load so a rerun starts from an empty schema.
func NewPersistenceService(
	schemaRepo repository.SchemaRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	txManager repository.TransactionManager,
	reset bool,
) PersistenceService {
	return &persistenceService{
		schemaRepo:  schemaRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		txManager:   txManager,
		reset:       reset,
	}
}

// Load commits all products before any order, since orders reference them.
func (s *persistenceService) Load(ctx context.Context, products []model.Product, orders []model.Order) error {
	if s.reset {
		if err := s.schemaRepo.Drop(ctx); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
	}
	if err := s.schemaRepo.Ensure(ctx); err != nil {
		return err
	}

	if err := s.insert(ctx, "products", len(products), s.productRepo.Count, func(txCtx context.Context) error {
		return s.productRepo.CreateBatch(txCtx, products)
	}); err != nil {
		return err
	}
	return s.insert(ctx, "orders", len(orders), s.orderRepo.Count, func(txCtx context.Context) error {
		return s.orderRepo.CreateBatch(txCtx, orders)
	})
}

// insert runs create in its own transaction and rolls back unless the table
// grew by exactly rows.
func (s *persistenceService) insert(
	ctx context.Context,
	table string,
	rows int,
	count func(context.Context) (int64, error),
	create func(context.Context) error,
) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		before, err := count(txCtx)
		if err != nil {
			return fmt.Errorf("count before: %w", err)
		}
		if err := create(txCtx); err != nil {
			return err
		}
		after, err := count(txCtx)
		if err != nil {
			return fmt.Errorf("count after: %w", err)
		}
		if got := after - before; got != int64(rows) {
			return fmt.Errorf("%w: expected %d new rows, found %d", ErrPartialLoad, rows, got)
		}
		return nil
	})
	if err != nil {
		return classify(table, rows, err)
	}
	slog.Info("persisted rows", "table", table, "rows", rows)
	return nil
}

func classify(table string, rows int, err error) error {
	if isConstraintViolation(err) {
		return &ConstraintError{Table: table, Rows: rows, Err: err}
	}
	return fmt.Errorf("insert %d rows into %s: %w", rows, table, err)
}
