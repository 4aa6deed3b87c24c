package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// 运行记录状态
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type SyncRunRepository struct {
	db *gorm.DB
}

func NewSyncRunRepository(db *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func (r *SyncRunRepository) Create(run *model.SyncRun) error {
	return r.db.Create(run).Error
}

func (r *SyncRunRepository) GetByRunID(runID string) (*model.SyncRun, error) {
	var run model.SyncRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Finish 记录结束状态与耗时
func (r *SyncRunRepository) Finish(runID, status string, processed int, errMsg string, completedAt time.Time) error {
	var run model.SyncRun
	if err := r.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return err
	}
	return r.db.Model(&run).Updates(map[string]interface{}{
		"status":                  status,
		"subscriptions_processed": processed,
		"error_message":           errMsg,
		"completed_at":            completedAt,
		"elapsed_millis":          completedAt.Sub(run.CreatedAt).Milliseconds(),
	}).Error
}

// ListByCompany 最近的运行记录
func (r *SyncRunRepository) ListByCompany(companyID int64, limit int) ([]*model.SyncRun, error) {
	var runs []*model.SyncRun
	err := r.db.Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
