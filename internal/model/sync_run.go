package model

import (
	"time"
)

// SyncRun 一次同步尝试的记录
type SyncRun struct {
	ID                     int64      `gorm:"primaryKey" json:"id"`
	RunID                  string     `gorm:"size:36;uniqueIndex;not null" json:"run_id"`
	CompanyID              int64      `gorm:"not null;index" json:"company_id"`
	UserID                 int64      `gorm:"not null;index" json:"user_id"`
	Trigger                string     `gorm:"size:20;not null" json:"trigger"` // api, schedule, manual
	SyncMode               string     `gorm:"size:20;not null" json:"sync_mode"`
	Months                 int        `gorm:"not null" json:"months"`
	Status                 string     `gorm:"size:20;default:running;index" json:"status"` // running, completed, failed
	SubscriptionsProcessed int        `json:"subscriptions_processed"`
	ErrorMessage           string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt              time.Time  `gorm:"index" json:"created_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	ElapsedMillis          int64      `json:"elapsed_millis,omitempty"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
