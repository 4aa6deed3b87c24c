package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// 租约状态
const (
	SyncStatusIdle    = "idle"
	SyncStatusRunning = "running"
	SyncStatusError   = "error"
)

// SyncState 每个公司一行，作为同步租约
type SyncState struct {
	CompanyID              int64          `gorm:"primaryKey;autoIncrement:false" json:"company_id"`
	Status                 string         `gorm:"size:20;not null;default:idle" json:"status"`
	RunID                  string         `gorm:"size:36" json:"run_id,omitempty"`
	StartedAt              *time.Time     `json:"started_at,omitempty"`
	FinishedAt             *time.Time     `json:"finished_at,omitempty"`
	LastSuccessAt          *time.Time     `json:"last_success_at,omitempty"`
	LastError              string         `gorm:"type:text" json:"last_error,omitempty"`
	LastSyncMode           string         `gorm:"size:20" json:"last_sync_mode,omitempty"`
	SubscriptionsProcessed int            `json:"subscriptions_processed"`
	StatusBreakdown        datatypes.JSON `json:"status_breakdown,omitempty"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

func (SyncState) TableName() string {
	return "sync_states"
}

// Breakdown 解析上次成功同步的状态分布
func (s *SyncState) Breakdown() map[string]int {
	out := map[string]int{}
	if len(s.StatusBreakdown) == 0 {
		return out
	}
	_ = json.Unmarshal(s.StatusBreakdown, &out)
	return out
}
