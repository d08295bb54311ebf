package repository

import (
	"context"

	"orderetl/internal/model"

	"gorm.io/gorm"
)

// InsertBatchSize bounds the rows per INSERT statement
const InsertBatchSize = 500

type ProductRepository interface {
	CreateBatch(ctx context.Context, products []model.Product) error
	Count(ctx context.Context) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) CreateBatch(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(products, InsertBatchSize).Error
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Count(&total).Error
	return total, err
}
