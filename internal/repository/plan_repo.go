package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(plan *model.UserPlan) error {
	return r.db.Create(plan).Error
}

// GetActive 返回用户当前有效套餐中到期最晚的一个
func (r *PlanRepository) GetActive(userID int64, now time.Time) (*model.UserPlan, error) {
	var plan model.UserPlan
	err := r.db.Where("user_id = ? AND status IN ? AND expires_at > ?",
		userID, []string{model.PlanStatusActive, model.PlanStatusTrialing}, now).
		Order("expires_at DESC").
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) ListByUser(userID int64) ([]*model.UserPlan, error) {
	var plans []*model.UserPlan
	err := r.db.Where("user_id = ?", userID).Order("started_at DESC").Find(&plans).Error
	return plans, err
}

// ExpireOverdue 把已过期但仍标记为有效的套餐置为 expired
func (r *PlanRepository) ExpireOverdue(now time.Time) (int64, error) {
	result := r.db.Model(&model.UserPlan{}).
		Where("status IN ? AND expires_at <= ?", []string{model.PlanStatusActive, model.PlanStatusTrialing}, now).
		Update("status", model.PlanStatusExpired)
	return result.RowsAffected, result.Error
}
