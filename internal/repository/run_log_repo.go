package repository

import (
	"context"

	"orderetl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunLogRepository interface {
	Log(ctx context.Context, entry *model.RunLog) error
	List(ctx context.Context, page, limit int) ([]model.RunLog, int64, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]model.RunLog, error)
}

type runLogRepository struct {
	db *gorm.DB
}

func NewRunLogRepository(db *gorm.DB) RunLogRepository {
	return &runLogRepository{db: db}
}

func (r *runLogRepository) Log(ctx context.Context, entry *model.RunLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *runLogRepository) List(ctx context.Context, page, limit int) ([]model.RunLog, int64, error) {
	var logs []model.RunLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.RunLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *runLogRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]model.RunLog, error) {
	var logs []model.RunLog
	if err := GetDB(ctx, r.db).Where("run_id = ?", runID).Order("created_at asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
