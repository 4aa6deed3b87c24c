package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/api/middleware"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/pkg/secret"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/revenue"
	"github.com/qs3c/metrics_go_server/internal/service"
	"github.com/qs3c/metrics_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testJWTSecret = "test-secret-key-for-handlers"
	testStripeKey = "sk_test_handler_secret"
)

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 把响应 data 解析到 out
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// mockAuth 模拟认证中间件
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

// stubPager 返回固定的一页订阅
type stubPager struct {
	subs []revenue.Subscription
	err  error
}

func (p *stubPager) ListPage(ctx context.Context, req revenue.PageRequest) (*revenue.Page, error) {
	if p.err != nil {
		return nil, p.err
	}
	page := &revenue.Page{}
	for _, s := range p.subs {
		if s.Status == req.Status {
			page.Subscriptions = append(page.Subscriptions, s)
		}
	}
	return page, nil
}

type stubFactory struct {
	pager *stubPager
}

func (f stubFactory) NewPager(string) revenue.SubscriptionPager {
	return f.pager
}

type handlerEnv struct {
	db        *gorm.DB
	cipher    *secret.Cipher
	pager     *stubPager
	companies *service.CompanyService
	sync      *service.SyncService
	revenue   *service.RevenueService
	users     *service.UserService
	stateRepo *repository.SyncStateRepository
}

func setupHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	key, err := secret.GenerateKey()
	require.NoError(t, err)
	cipher, err := secret.NewCipherFromBase64Key(key)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	log := zap.NewNop()

	stateRepo := repository.NewSyncStateRepository(db)
	runRepo := repository.NewSyncRunRepository(db)
	snapRepo := repository.NewSnapshotRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	planRepo := repository.NewPlanRepository(db)

	pager := &stubPager{}
	companies := service.NewCompanyService(companyRepo, cipher, log)
	access := service.NewAccessService(planRepo)

	return &handlerEnv{
		db:        db,
		cipher:    cipher,
		pager:     pager,
		companies: companies,
		sync:      service.NewSyncService(companies, access, stateRepo, runRepo, snapRepo, stubFactory{pager}, nil, nil, cfg, log),
		revenue:   service.NewRevenueService(companies, snapRepo, stateRepo, runRepo, cfg),
		users:     service.NewUserService(repository.NewUserRepository(db), planRepo, companyRepo),
		stateRepo: stateRepo,
	}
}

// founder 有效套餐且已连接 Stripe
func (e *handlerEnv) founder(t *testing.T) (*model.User, *model.Company) {
	t.Helper()
	user := testutil.TestUser(t, e.db)
	testutil.TestPlan(t, e.db, user.ID)
	enc, err := e.cipher.Encrypt(testStripeKey)
	require.NoError(t, err)
	return user, testutil.TestCompany(t, e.db, user.ID, testutil.WithStripeSecret(enc))
}

func activeSub(id string, cents int64, start time.Time) revenue.Subscription {
	return revenue.Subscription{
		ID:        id,
		Status:    revenue.StatusActive,
		StartDate: start.Unix(),
		Created:   start.Unix(),
		Items: []revenue.Item{
			{UnitAmount: cents, Quantity: 1, Interval: revenue.IntervalMonth, IntervalCount: 1},
		},
	}
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
