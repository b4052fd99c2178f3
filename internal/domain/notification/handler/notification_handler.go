package handler

import (
	"errors"
	"net/http"

	"flowmarket/internal/domain/notification/service"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/pkg/response"
	"flowmarket/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(s service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: s}
}

// List 我的通知
// @Summary 我的通知
// @Tags Notification
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := middleware.UserIDFromContext(c)
	list, total, err := h.service.List(userID, &p)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: list, Total: total, Page: p.Page, Limit: p.Limit})
}

// UnreadCount 未读数
// @Summary 未读通知数
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Response{data=int64}
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	count, err := h.service.UnreadCount(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, gin.H{"count": count})
}

// MarkRead 标记已读
// @Summary 标记通知已读
// @Tags Notification
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.service.MarkRead(userID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrInvalidParam, "notification not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, nil)
}

// MarkAllRead 全部已读
// @Summary 全部标记已读
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.service.MarkAllRead(userID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, nil)
}

type BroadcastInput struct {
	Title string `json:"title" binding:"required,max=200"`
	Body  string `json:"body" binding:"required"`
	Role  int    `json:"role" binding:"omitempty,oneof=1 2 3"` // 0 不过滤角色
}

// Broadcast 全员广播
// @Summary 全员广播 (管理员)
// @Tags Admin
// @Accept json
// @Produce json
// @Param input body BroadcastInput true "Broadcast content"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /admin/notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var input BroadcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.Broadcast(input.Title, input.Body, input.Role); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, nil)
}
