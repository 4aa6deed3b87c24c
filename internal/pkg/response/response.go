package response

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodePaymentRequired  = 1004
	CodeSyncInProgress   = 1005
	CodeRateLimited      = 1006
	CodeServerError      = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "参数错误",
	CodeAuthFailed:       "认证失败",
	CodePermissionDenied: "权限不足",
	CodeResourceNotFound: "资源不存在",
	CodePaymentRequired:  "需要有效的订阅或试用",
	CodeSyncInProgress:   "同步正在进行中，请稍后再试",
	CodeRateLimited:      "请求过于频繁",
	CodeServerError:      "服务器内部错误",
}

// 错误码对应的 HTTP 状态码
var codeStatus = map[int]int{
	CodeSuccess:          http.StatusOK,
	CodeParamError:       http.StatusBadRequest,
	CodeAuthFailed:       http.StatusUnauthorized,
	CodePermissionDenied: http.StatusForbidden,
	CodeResourceNotFound: http.StatusNotFound,
	CodePaymentRequired:  http.StatusPaymentRequired,
	CodeSyncInProgress:   http.StatusConflict,
	CodeRateLimited:      http.StatusTooManyRequests,
	CodeServerError:      http.StatusInternalServerError,
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// StatusOf 返回错误码对应的 HTTP 状态码
func StatusOf(code int) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error 错误响应，HTTP 状态码由错误码决定
func Error(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(StatusOf(code), Response{
		Code:    code,
		Message: orDefault(message, code),
		Data:    nil,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

// PermissionError 权限不足
func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// PaymentRequiredError 无有效订阅或试用
func PaymentRequiredError(c *gin.Context, message string) {
	Error(c, CodePaymentRequired, message)
}

// ConflictError 已有同步在运行
func ConflictError(c *gin.Context, message string) {
	Error(c, CodeSyncInProgress, message)
}

// RateLimitError 触发限流，Retry-After 向上取整到秒
func RateLimitError(c *gin.Context, retryAfter time.Duration, message string) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
		Code:    CodeRateLimited,
		Message: orDefault(message, CodeRateLimited),
		Data:    gin.H{"retry_after": seconds},
	})
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func orDefault(message string, code int) string {
	if message == "" {
		return codeMessages[code]
	}
	return message
}
