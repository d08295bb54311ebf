package service

import (
	"context"
	"sync"

	"orderetl/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockSchemaRepository struct {
	mock.Mock
}

func (m *MockSchemaRepository) Drop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSchemaRepository) Ensure(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) CreateBatch(ctx context.Context, products []model.Product) error {
	return m.Called(ctx, products).Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateBatch(ctx context.Context, orders []model.Order) error {
	return m.Called(ctx, orders).Error(0)
}

func (m *MockOrderRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// fakeTxManager runs fn inline; the real one is exercised against a database
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type MockPersistenceService struct {
	mock.Mock
}

func (m *MockPersistenceService) Load(ctx context.Context, products []model.Product, orders []model.Order) error {
	return m.Called(ctx, products, orders).Error(0)
}

type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) Resolve(ctx context.Context, base, target string) (decimal.Decimal, error) {
	args := m.Called(ctx, base, target)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, runID uuid.UUID, kpis []model.KPIRecord) error {
	return m.Called(ctx, runID, kpis).Error(0)
}

// memRunLogRepo keeps run logs in memory
type memRunLogRepo struct {
	mu   sync.Mutex
	logs []model.RunLog
	err  error
}

func (r *memRunLogRepo) Log(_ context.Context, entry *model.RunLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *memRunLogRepo) List(_ context.Context, page, limit int) ([]model.RunLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := int64(len(r.logs))
	start := (page - 1) * limit
	if start >= len(r.logs) {
		return []model.RunLog{}, total, nil
	}
	end := min(start+limit, len(r.logs))
	return append([]model.RunLog(nil), r.logs[start:end]...), total, nil
}

func (r *memRunLogRepo) ListByRun(_ context.Context, runID uuid.UUID) ([]model.RunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RunLog
	for _, l := range r.logs {
		if l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memRunLogRepo) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Stage+":"+l.Status)
	}
	return out
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []StageEvent
}

func (b *recordingBroadcaster) BroadcastJSON(v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, v.(StageEvent))
	return nil
}
