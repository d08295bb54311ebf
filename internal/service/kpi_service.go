package service

import (
	"context"
	"errors"

	"orderetl/internal/csvio"
	"orderetl/internal/model"
)

var ErrNoKPIs = errors.New("no kpis computed yet")

type KPIService interface {
	Latest(ctx context.Context) ([]model.KPIRecord, error)
}

type kpiService struct {
	path string
}

// NewKPIService serves the KPI file written by the last successful run
func NewKPIService(path string) KPIService {
	return &kpiService{path: path}
}

func (s *kpiService) Latest(_ context.Context) ([]model.KPIRecord, error) {
	kpis, err := csvio.ReadKPIs(s.path)
	if errors.Is(err, csvio.ErrSourceNotFound) {
		return nil, ErrNoKPIs
	}
	return kpis, err
}
