package service

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/repository"
)

var ErrUserNotFound = errors.New("用户不存在")

type UserService struct {
	userRepo    *repository.UserRepository
	planRepo    *repository.PlanRepository
	companyRepo *repository.CompanyRepository
	now         func() time.Time
}

func NewUserService(userRepo *repository.UserRepository, planRepo *repository.PlanRepository, companyRepo *repository.CompanyRepository) *UserService {
	return &UserService{
		userRepo:    userRepo,
		planRepo:    planRepo,
		companyRepo: companyRepo,
		now:         time.Now,
	}
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(userID int64) (*dto.UserProfile, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	profile := &dto.UserProfile{
		ID:       user.ID,
		Username: user.Username,
	}
	if user.Email != nil {
		profile.Email = *user.Email
	}

	now := s.now()
	plan, err := s.planRepo.GetActive(userID, now)
	switch {
	case err == nil:
		profile.Plan = &dto.PlanInfo{
			Plan:      plan.Plan,
			Status:    plan.Status,
			ExpiresAt: plan.ExpiresAt.UTC().Format(time.RFC3339),
		}
		profile.HasAccess = plan.GrantsAccess(now)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	companies, err := s.companyRepo.ListByOwner(userID)
	if err != nil {
		return nil, err
	}
	profile.Companies = lo.Map(companies, func(c *model.Company, _ int) *dto.CompanyInfo {
		return CompanyInfo(c)
	})
	return profile, nil
}
