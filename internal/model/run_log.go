package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pipeline stages recorded in the run log
const (
	StageExtract   = "EXTRACT"
	StageClean     = "CLEAN"
	StageIntegrity = "INTEGRITY"
	StageMerge     = "MERGE"
	StageRate      = "RATE"
	StageConvert   = "CONVERT"
	StageKPI       = "KPI"
	StagePersist   = "PERSIST"
	StageRun       = "RUN"
)

const (
	RunStatusOK      = "OK"
	RunStatusWarning = "WARNING"
	RunStatusFailed  = "FAILED"
)

// RunLog tracks what each stage of a pipeline run did
type RunLog struct {
	ID        uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	RunID     uuid.UUID      `gorm:"type:varchar(36);not null;index" json:"run_id"`
	Stage     string         `gorm:"type:varchar(30);not null;index" json:"stage"`
	Status    string         `gorm:"type:varchar(20);not null" json:"status"`
	Message   string         `gorm:"type:text" json:"message"`
	Details   datatypes.JSON `json:"details"` // Serialized stage counters
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (RunLog) TableName() string { return "pipeline_run_logs" }

// BeforeCreate assigns the id client side so the table works on every driver
func (l *RunLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
