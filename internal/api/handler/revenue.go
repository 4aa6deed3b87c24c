package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/internal/api/middleware"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/service"
)

type RevenueHandler struct {
	syncService    *service.SyncService
	revenueService *service.RevenueService
	logger         *zap.Logger
}

func NewRevenueHandler(syncService *service.SyncService, revenueService *service.RevenueService, logger *zap.Logger) *RevenueHandler {
	return &RevenueHandler{
		syncService:    syncService,
		revenueService: revenueService,
		logger:         logger.Named("revenue"),
	}
}

// Sync 从 Stripe 重建月度收入快照
// POST /api/v1/revenue/sync
func (h *RevenueHandler) Sync(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SyncRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ParamError(c, err.Error())
		return
	}
	if req.Months < 0 {
		response.ParamError(c, "months 不能为负数")
		return
	}

	resp, err := h.syncService.Sync(c.Request.Context(), userID, &req)
	if err != nil {
		if !errors.Is(err, service.ErrSyncInProgress) && !errors.Is(err, service.ErrPaymentRequired) {
			h.logger.Warn("sync request failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "同步完成", resp)
}

// Snapshots 已保存的月度快照
// GET /api/v1/revenue/snapshots
func (h *RevenueHandler) Snapshots(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SnapshotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.revenueService.ListSnapshots(userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}

// SyncStatus 同步租约状态
// GET /api/v1/revenue/sync/status
func (h *RevenueHandler) SyncStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	companyID, ok := optionalID(c, "company_id")
	if !ok {
		return
	}

	resp, err := h.revenueService.SyncStatus(userID, companyID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}

// SyncRuns 最近的同步记录
// GET /api/v1/revenue/sync/runs
func (h *RevenueHandler) SyncRuns(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	companyID, ok := optionalID(c, "company_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.revenueService.RecentRuns(userID, companyID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, runs)
}

// optionalID 解析可选的 ID 查询参数，格式错误时已写入响应
func optionalID(c *gin.Context, key string) (*int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的 "+key)
		return nil, false
	}
	return &id, true
}
