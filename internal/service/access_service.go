package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/repository"
)

var (
	ErrPaymentRequired = errors.New("需要有效的订阅或试用")
)

// AccessService 判断用户是否持有有效的付费或试用套餐
type AccessService struct {
	planRepo *repository.PlanRepository
	now      func() time.Time
}

func NewAccessService(planRepo *repository.PlanRepository) *AccessService {
	return &AccessService{
		planRepo: planRepo,
		now:      time.Now,
	}
}

// HasActiveAccess 当前是否有有效套餐
func (s *AccessService) HasActiveAccess(userID int64) (bool, error) {
	plan, err := s.planRepo.GetActive(userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return plan.GrantsAccess(s.now()), nil
}

// RequireAccess 无有效套餐时返回 ErrPaymentRequired
func (s *AccessService) RequireAccess(userID int64) error {
	ok, err := s.HasActiveAccess(userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPaymentRequired
	}
	return nil
}

// ExpireOverdue 清理已过期的套餐状态
func (s *AccessService) ExpireOverdue() (int64, error) {
	return s.planRepo.ExpireOverdue(s.now())
}
