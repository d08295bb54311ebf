package repository

import (
	"context"

	"orderetl/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	CreateBatch(ctx context.Context, orders []model.Order) error
	Count(ctx context.Context) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateBatch(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(orders, InsertBatchSize).Error
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).Count(&total).Error
	return total, err
}
