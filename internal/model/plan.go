package model

import (
	"time"
)

// 套餐状态
const (
	PlanStatusActive    = "active"
	PlanStatusTrialing  = "trialing"
	PlanStatusExpired   = "expired"
	PlanStatusCancelled = "cancelled"
)

// UserPlan 用户自身的付费或试用套餐，决定能否使用收入同步
type UserPlan struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Plan      string    `gorm:"size:20;not null" json:"plan"` // trial, starter, pro
	Status    string    `gorm:"size:20;default:active;index" json:"status"`
	StartedAt time.Time `gorm:"not null" json:"started_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserPlan) TableName() string {
	return "user_plans"
}

// GrantsAccess 状态有效且未过期
func (p *UserPlan) GrantsAccess(now time.Time) bool {
	if p.Status != PlanStatusActive && p.Status != PlanStatusTrialing {
		return false
	}
	return p.ExpiresAt.After(now)
}
