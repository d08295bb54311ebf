package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"orderetl/internal/model"
	"orderetl/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunLogResponse struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Stage     string         `json:"stage"`
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Details   datatypes.JSON `json:"details,omitempty"`
	CreatedAt string         `json:"created_at"`
}

type RunLogService interface {
	Record(ctx context.Context, runID uuid.UUID, stage, status, message string, details any)
	GetRunLogs(ctx context.Context, page, limit int) ([]RunLogResponse, int64, error)
	GetRun(ctx context.Context, runID uuid.UUID) ([]RunLogResponse, error)
}

type runLogService struct {
	runLogRepo repository.RunLogRepository
}

// NewRunLogService creates a new RunLogService instance
func NewRunLogService(runLogRepo repository.RunLogRepository) RunLogService {
	return &runLogService{runLogRepo: runLogRepo}
}

// Record stores one stage outcome. A failing run log never fails the run itself.
func (s *runLogService) Record(ctx context.Context, runID uuid.UUID, stage, status, message string, details any) {
	entry := &model.RunLog{RunID: runID, Stage: stage, Status: status, Message: message}
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			slog.Warn("run log details not serializable", "run_id", runID, "stage", stage, "error", err)
		} else {
			entry.Details = datatypes.JSON(b)
		}
	}
	if err := s.runLogRepo.Log(ctx, entry); err != nil {
		slog.Warn("failed to write run log", "run_id", runID, "stage", stage, "error", err)
	}
}

// GetRunLogs retrieves run log entries, newest first
func (s *runLogService) GetRunLogs(ctx context.Context, page, limit int) ([]RunLogResponse, int64, error) {
	logs, total, err := s.runLogRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toRunLogResponses(logs), total, nil
}

func (s *runLogService) GetRun(ctx context.Context, runID uuid.UUID) ([]RunLogResponse, error) {
	logs, err := s.runLogRepo.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return toRunLogResponses(logs), nil
}

func toRunLogResponses(logs []model.RunLog) []RunLogResponse {
	res := make([]RunLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, RunLogResponse{
			ID:        l.ID.String(),
			RunID:     l.RunID.String(),
			Stage:     l.Stage,
			Status:    l.Status,
			Message:   l.Message,
			Details:   l.Details,
			CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res
}
