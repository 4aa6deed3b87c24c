package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/pkg/pubsub"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/pkg/secret"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/revenue"
	"github.com/qs3c/metrics_go_server/internal/testutil"
)

const testStripeKey = "sk_test_51H_secret_value"

var syncNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func unix(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC).Unix()
}

func monthlySub(id string, status revenue.Status, cents int64, start int64) revenue.Subscription {
	return revenue.Subscription{
		ID:        id,
		Status:    status,
		StartDate: start,
		Created:   start,
		Items: []revenue.Item{
			{UnitAmount: cents, Quantity: 1, Interval: revenue.IntervalMonth, IntervalCount: 1},
		},
	}
}

// scenarioSubs A 8 月开始 $50，B 10 月开始 $30，C 7 月开始 $20 并于 9 月取消
func scenarioSubs() []revenue.Subscription {
	c := monthlySub("sub_c", revenue.StatusCanceled, 2000, unix(2026, time.July, 10))
	c.EndedAt = unix(2026, time.September, 15)
	c.CanceledAt = unix(2026, time.September, 15)
	return []revenue.Subscription{
		monthlySub("sub_a", revenue.StatusActive, 5000, unix(2026, time.August, 10)),
		monthlySub("sub_b", revenue.StatusActive, 3000, unix(2026, time.October, 5)),
		c,
	}
}

// fakePager 按状态返回预设订阅，单页
type fakePager struct {
	mu       sync.Mutex
	subs     []revenue.Subscription
	requests []revenue.PageRequest
	err      error
	onList   func()
}

func (p *fakePager) ListPage(ctx context.Context, req revenue.PageRequest) (*revenue.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.onList != nil {
		p.onList()
	}
	if p.err != nil {
		return nil, p.err
	}
	page := &revenue.Page{}
	for _, s := range p.subs {
		if s.Status != req.Status {
			continue
		}
		if req.CreatedGTE > 0 && s.Created < req.CreatedGTE {
			continue
		}
		page.Subscriptions = append(page.Subscriptions, s)
	}
	return page, nil
}

func (p *fakePager) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type fakeFactory struct {
	pager *fakePager
	keys  []string
}

func (f *fakeFactory) NewPager(secretKey string) revenue.SubscriptionPager {
	f.keys = append(f.keys, secretKey)
	return f.pager
}

type recordingPublisher struct {
	mu    sync.Mutex
	steps []string
	msgs  []pubsub.ProgressMessage
}

func (r *recordingPublisher) PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, msg.Step)
	r.msgs = append(r.msgs, *msg)
	return nil
}

type recordingQueue struct {
	msgs []*queue.SyncJobMessage
	err  error
}

func (q *recordingQueue) Push(ctx context.Context, msg *queue.SyncJobMessage) error {
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

type syncEnv struct {
	db        *gorm.DB
	cfg       *config.Config
	cipher    *secret.Cipher
	pager     *fakePager
	factory   *fakeFactory
	publisher *recordingPublisher
	jobs      *recordingQueue
	logs      *observer.ObservedLogs
	companies *CompanyService
	access    *AccessService
	sync      *SyncService
	revenue   *RevenueService
	stateRepo *repository.SyncStateRepository
	snapRepo  *repository.SnapshotRepository
	runRepo   *repository.SyncRunRepository
}

func setupSyncEnv(t *testing.T) *syncEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	key, err := secret.GenerateKey()
	require.NoError(t, err)
	cipher, err := secret.NewCipherFromBase64Key(key)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	env := &syncEnv{
		db:        db,
		cfg:       cfg,
		cipher:    cipher,
		pager:     &fakePager{},
		publisher: &recordingPublisher{},
		jobs:      &recordingQueue{},
		logs:      logs,
		stateRepo: repository.NewSyncStateRepository(db),
		snapRepo:  repository.NewSnapshotRepository(db),
		runRepo:   repository.NewSyncRunRepository(db),
	}
	env.factory = &fakeFactory{pager: env.pager}
	env.companies = NewCompanyService(repository.NewCompanyRepository(db), cipher, log)
	env.access = NewAccessService(repository.NewPlanRepository(db))
	env.sync = NewSyncService(env.companies, env.access, env.stateRepo, env.runRepo, env.snapRepo,
		env.factory, env.publisher, env.jobs, cfg, log)
	env.sync.now = func() time.Time { return syncNow }
	env.revenue = NewRevenueService(env.companies, env.snapRepo, env.stateRepo, env.runRepo, cfg)
	env.revenue.now = func() time.Time { return syncNow }
	return env
}

// founder 创建有有效套餐且已连接 Stripe 的用户与公司
func (e *syncEnv) founder(t *testing.T) (*model.User, *model.Company) {
	t.Helper()
	user := testutil.TestUser(t, e.db)
	testutil.TestPlan(t, e.db, user.ID)
	enc, err := e.cipher.Encrypt(testStripeKey)
	require.NoError(t, err)
	company := testutil.TestCompany(t, e.db, user.ID, testutil.WithStripeSecret(enc))
	return user, company
}

func (e *syncEnv) revokeAccess(t *testing.T, userID int64) {
	t.Helper()
	require.NoError(t, e.db.Model(&model.UserPlan{}).
		Where("user_id = ?", userID).
		Update("status", model.PlanStatusCancelled).Error)
}

var errStripeDown = errors.New("stripe: 503 service unavailable")
