package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/api/middleware"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile 获取当前用户信息
// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, profile)
}
