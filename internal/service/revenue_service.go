package service

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/revenue"
)

// RevenueService 看板读取已持久化的快照与同步状态
type RevenueService struct {
	companies    *CompanyService
	snapshotRepo *repository.SnapshotRepository
	stateRepo    *repository.SyncStateRepository
	runRepo      *repository.SyncRunRepository
	cfg          *config.Config
	now          func() time.Time
}

func NewRevenueService(
	companies *CompanyService,
	snapshotRepo *repository.SnapshotRepository,
	stateRepo *repository.SyncStateRepository,
	runRepo *repository.SyncRunRepository,
	cfg *config.Config,
) *RevenueService {
	return &RevenueService{
		companies:    companies,
		snapshotRepo: snapshotRepo,
		stateRepo:    stateRepo,
		runRepo:      runRepo,
		cfg:          cfg,
		now:          time.Now,
	}
}

// ListSnapshots 返回最近 months 个月的快照
func (s *RevenueService) ListSnapshots(userID int64, req *dto.SnapshotListRequest) (*dto.SnapshotListResponse, error) {
	company, err := s.companies.Resolve(userID, req.CompanyID)
	if err != nil {
		return nil, err
	}

	months := req.Months
	if months == 0 {
		months = s.cfg.Sync.DefaultMonths
	}
	buckets := revenue.BuildMonthBuckets(months, s.now())

	snaps, err := s.snapshotRepo.ListByCompany(company.ID, buckets[0].Date)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SnapshotDTO, 0, len(snaps))
	for _, snap := range snaps {
		items = append(items, snapshotToDTO(snap))
	}
	return &dto.SnapshotListResponse{CompanyID: company.ID, Items: items}, nil
}

// SyncStatus 返回租约状态，从未同步过时为 idle
func (s *RevenueService) SyncStatus(userID int64, companyID *int64) (*dto.SyncStatusResponse, error) {
	company, err := s.companies.Resolve(userID, companyID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(company)
}

// SyncStatusByCompany 不校验归属，供运维命令使用
func (s *RevenueService) SyncStatusByCompany(companyID int64) (*dto.SyncStatusResponse, error) {
	company, err := s.companies.companyRepo.GetByID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return s.statusOf(company)
}

func (s *RevenueService) statusOf(company *model.Company) (*dto.SyncStatusResponse, error) {
	resp := &dto.SyncStatusResponse{
		CompanyID:       company.ID,
		Status:          model.SyncStatusIdle,
		StatusBreakdown: map[string]int{},
		StripeConnected: company.HasStripe(),
	}

	state, err := s.stateRepo.Get(company.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		return nil, err
	}

	resp.Status = state.Status
	resp.RunID = state.RunID
	resp.StartedAt = formatTime(state.StartedAt)
	resp.FinishedAt = formatTime(state.FinishedAt)
	resp.LastSuccessAt = formatTime(state.LastSuccessAt)
	resp.LastError = state.LastError
	resp.LastSyncMode = state.LastSyncMode
	resp.SubscriptionsProcessed = state.SubscriptionsProcessed
	resp.StatusBreakdown = state.Breakdown()
	return resp, nil
}

// RecentRuns 最近的同步记录
func (s *RevenueService) RecentRuns(userID int64, companyID *int64, limit int) ([]*dto.SyncRunInfo, error) {
	company, err := s.companies.Resolve(userID, companyID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	runs, err := s.runRepo.ListByCompany(company.ID, limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(runs, func(r *model.SyncRun, _ int) *dto.SyncRunInfo {
		return runToDTO(r)
	}), nil
}
