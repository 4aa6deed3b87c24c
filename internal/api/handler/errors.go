package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/service"
)

// writeServiceError 把业务错误映射为统一响应，未知错误不暴露细节
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCompanyNotFound), errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrCompanyForbidden):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrPaymentRequired):
		response.PaymentRequiredError(c, err.Error())
	case errors.Is(err, service.ErrSyncInProgress):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrStripeNotConnected), errors.Is(err, service.ErrInvalidSince):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrConnectDisabled),
		errors.Is(err, service.ErrConnectStateInvalid),
		errors.Is(err, service.ErrConnectDenied):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, service.PublicMessage(err))
	}
}
