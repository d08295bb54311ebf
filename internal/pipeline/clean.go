package pipeline

import (
	"fmt"
	"sync"

	"orderetl/internal/model"

	"github.com/shopspring/decimal"
)

// Sink receives rows rejected by Clean, for later audit.
type Sink[T any] interface {
	Quarantine(rows []T) error
}

// Rule accepts a record iff Value(record) >= Min.
type Rule[T any] struct {
	Column string
	Min    decimal.Decimal
	Value  func(T) decimal.Decimal
}

// ProductPriceRule rejects products with a negative price
var ProductPriceRule = Rule[model.Product]{
	Column: "price",
	Min:    decimal.Zero,
	Value:  func(p model.Product) decimal.Decimal { return p.Price },
}

// OrderQuantityRule rejects orders for less than one unit
var OrderQuantityRule = Rule[model.Order]{
	Column: "quantity",
	Min:    decimal.NewFromInt(1),
	Value:  func(o model.Order) decimal.Decimal { return decimal.NewFromInt(int64(o.Quantity)) },
}

// Clean splits records into accepted and rejected by rule. Rejected rows are
// written to sink in one call when sink is non-nil, and dropped otherwise.
// The input slice is not modified.
func Clean[T any](records []T, rule Rule[T], sink Sink[T]) (accepted, rejected []T, err error) {
	accepted = make([]T, 0, len(records))
	for _, r := range records {
		if rule.Value(r).GreaterThanOrEqual(rule.Min) {
			accepted = append(accepted, r)
		} else {
			rejected = append(rejected, r)
		}
	}

	if sink != nil && len(rejected) > 0 {
		if err := sink.Quarantine(rejected); err != nil {
			return nil, nil, fmt.Errorf("quarantine %d rows failing %s >= %s: %w", len(rejected), rule.Column, rule.Min, err)
		}
	}
	return accepted, rejected, nil
}

// MemorySink collects quarantined rows in memory.
type MemorySink[T any] struct {
	mu   sync.Mutex
	Rows []T
}

func (s *MemorySink[T]) Quarantine(rows []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows = append(s.Rows, rows...)
	return nil
}
