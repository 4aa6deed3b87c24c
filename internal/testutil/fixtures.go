package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	user := &model.User{
		Username: fmt.Sprintf("testuser_%d", time.Now().UnixNano()),
		Email:    &email,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// TestPlan 创建测试套餐，默认 30 天内有效的 pro 套餐
func TestPlan(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.UserPlan)) *model.UserPlan {
	t.Helper()

	now := time.Now()
	plan := &model.UserPlan{
		UserID:    userID,
		Plan:      "pro",
		Status:    model.PlanStatusActive,
		StartedAt: now.Add(-24 * time.Hour),
		ExpiresAt: now.Add(30 * 24 * time.Hour),
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithPlanStatus 设置套餐状态
func WithPlanStatus(status string) func(*model.UserPlan) {
	return func(p *model.UserPlan) {
		p.Status = status
	}
}

// WithPlanExpiresAt 设置过期时间
func WithPlanExpiresAt(at time.Time) func(*model.UserPlan) {
	return func(p *model.UserPlan) {
		p.ExpiresAt = at
	}
}

// TestCompany 创建测试公司
func TestCompany(t *testing.T, db *gorm.DB, ownerID int64, opts ...func(*model.Company)) *model.Company {
	t.Helper()

	company := &model.Company{
		OwnerID: ownerID,
		Name:    fmt.Sprintf("Test Co %d", time.Now().UnixNano()%10000),
	}

	for _, opt := range opts {
		opt(company)
	}

	if err := db.Create(company).Error; err != nil {
		t.Fatalf("Failed to create test company: %v", err)
	}

	return company
}

// WithStripeSecret 设置已加密的 Stripe 密钥
func WithStripeSecret(encrypted string) func(*model.Company) {
	return func(c *model.Company) {
		now := time.Now()
		c.StripeSecretEnc = encrypted
		c.StripeConnectedAt = &now
	}
}

// TestSnapshot 创建测试快照
func TestSnapshot(t *testing.T, db *gorm.DB, companyID int64, date string, mrr float64, source string) *model.RevenueSnapshot {
	t.Helper()

	snap := &model.RevenueSnapshot{
		CompanyID:    companyID,
		Date:         date,
		MRR:          decimal.NewFromFloat(mrr),
		NewMRR:       decimal.Zero,
		ExpansionMRR: decimal.Zero,
		ChurnedMRR:   decimal.Zero,
		Source:       source,
	}

	if err := db.Create(snap).Error; err != nil {
		t.Fatalf("Failed to create test snapshot: %v", err)
	}

	return snap
}

// TestSyncState 创建测试租约
func TestSyncState(t *testing.T, db *gorm.DB, companyID int64, status string, startedAt time.Time) *model.SyncState {
	t.Helper()

	state := &model.SyncState{
		CompanyID: companyID,
		Status:    status,
		RunID:     "fixture-run",
		StartedAt: &startedAt,
	}

	if err := db.Create(state).Error; err != nil {
		t.Fatalf("Failed to create test sync state: %v", err)
	}

	return state
}
