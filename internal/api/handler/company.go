package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/api/middleware"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/service"
)

type CompanyHandler struct {
	companyService *service.CompanyService
	connectService *service.ConnectService
}

func NewCompanyHandler(companyService *service.CompanyService, connectService *service.ConnectService) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		connectService: connectService,
	}
}

// ConnectStripe 保存公司的 Stripe 密钥
// PUT /api/v1/companies/:id/stripe-key
func (h *CompanyHandler) ConnectStripe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	companyID, ok := companyParam(c)
	if !ok {
		return
	}

	var req dto.ConnectStripeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 校验错误信息可能包含密钥原文
		response.ParamError(c, "secret_key 格式错误")
		return
	}

	info, err := h.companyService.ConnectStripe(userID, companyID, req.SecretKey)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已连接 Stripe", info)
}

// StripeConnect 返回 Stripe Connect 授权地址
// GET /api/v1/companies/:id/stripe-connect
func (h *CompanyHandler) StripeConnect(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	companyID, ok := companyParam(c)
	if !ok {
		return
	}

	link, err := h.connectService.AuthorizeURL(c.Request.Context(), userID, companyID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, link)
}

// StripeConnectCallback Stripe 授权回调，身份由 state 确定
// GET /api/v1/stripe/connect/callback
func (h *CompanyHandler) StripeConnectCallback(c *gin.Context) {
	var cb dto.StripeConnectCallback
	if err := c.ShouldBindQuery(&cb); err != nil {
		response.ParamError(c, "参数错误")
		return
	}

	info, err := h.connectService.Complete(c.Request.Context(), &cb)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已连接 Stripe", info)
}

func companyParam(c *gin.Context) (int64, bool) {
	companyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || companyID <= 0 {
		response.ParamError(c, "无效的公司 ID")
		return 0, false
	}
	return companyID, true
}
