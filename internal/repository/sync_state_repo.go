package repository

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// SyncOutcome 释放租约时写入的结果
type SyncOutcome struct {
	Status                 string // idle 或 error
	Error                  string
	SyncMode               string
	SubscriptionsProcessed int
	StatusBreakdown        map[string]int
}

// SyncStateRepository 租约的正确性依赖单行条件更新的原子性
type SyncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

func (r *SyncStateRepository) Get(companyID int64) (*model.SyncState, error) {
	var state model.SyncState
	err := r.db.Where("company_id = ?", companyID).First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// TryAcquire 不存在运行中且未过期的租约时占用，返回是否成功
func (r *SyncStateRepository) TryAcquire(companyID int64, runID string, now time.Time, ttl time.Duration) (bool, error) {
	now = now.UTC().Truncate(time.Second)

	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.SyncState{
		CompanyID: companyID,
		Status:    model.SyncStatusIdle,
	}).Error
	if err != nil {
		return false, err
	}

	result := r.db.Model(&model.SyncState{}).
		Where("company_id = ? AND (status <> ? OR started_at IS NULL OR started_at <= ?)",
			companyID, model.SyncStatusRunning, now.Add(-ttl)).
		Updates(map[string]interface{}{
			"status":      model.SyncStatusRunning,
			"run_id":      runID,
			"started_at":  now,
			"finished_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release 只释放自己持有的租约，返回是否仍由 runID 持有
func (r *SyncStateRepository) Release(companyID int64, runID string, now time.Time, outcome SyncOutcome) (bool, error) {
	now = now.UTC().Truncate(time.Second)
	updates := map[string]interface{}{
		"status":      outcome.Status,
		"finished_at": now,
		"last_error":  outcome.Error,
	}
	if outcome.Status == model.SyncStatusIdle {
		breakdown, err := json.Marshal(outcome.StatusBreakdown)
		if err != nil {
			return false, err
		}
		updates["last_success_at"] = now
		updates["last_sync_mode"] = outcome.SyncMode
		updates["subscriptions_processed"] = outcome.SubscriptionsProcessed
		updates["status_breakdown"] = datatypes.JSON(breakdown)
	}

	result := r.db.Model(&model.SyncState{}).
		Where("company_id = ? AND run_id = ? AND status = ?", companyID, runID, model.SyncStatusRunning).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpireStale 把超过 ttl 仍在运行的租约标记为 error
func (r *SyncStateRepository) ExpireStale(now time.Time, ttl time.Duration) (int64, error) {
	now = now.UTC().Truncate(time.Second)
	result := r.db.Model(&model.SyncState{}).
		Where("status = ? AND started_at <= ?", model.SyncStatusRunning, now.Add(-ttl)).
		Updates(map[string]interface{}{
			"status":      model.SyncStatusError,
			"finished_at": now,
			"last_error":  "lease expired",
		})
	return result.RowsAffected, result.Error
}

// ForceReset 运维手动清除租约
func (r *SyncStateRepository) ForceReset(companyID int64) (bool, error) {
	result := r.db.Model(&model.SyncState{}).
		Where("company_id = ?", companyID).
		Updates(map[string]interface{}{
			"status": model.SyncStatusIdle,
			"run_id": "",
		})
	return result.RowsAffected == 1, result.Error
}
