package handler

import (
	"errors"
	"net/http"

	"flowmarket/internal/domain/cart/service"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CartHandler struct {
	service service.CartService
}

func NewCartHandler(s service.CartService) *CartHandler {
	return &CartHandler{service: s}
}

// AddItemInput 加购输入
type AddItemInput struct {
	WorkflowID    string  `json:"workflowId" binding:"required"`
	PricingPlanID *string `json:"pricingPlanId"`
	Quantity      int64   `json:"quantity"`
}

// GetCart 获取当前用户购物车
// @Summary 购物车
// @Tags Cart
// @Security BearerAuth
// @Router /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.service.GetCart(middleware.UserIDFromContext(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch cart")
		return
	}
	response.Success(c, cart)
}

// AddItem 加入购物车
// @Summary 加入购物车
// @Tags Cart
// @Security BearerAuth
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var input AddItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	item, err := h.service.AddItem(middleware.UserIDFromContext(c), input.WorkflowID, input.PricingPlanID, input.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, item)
}

// UpdateItemInput 修改数量输入
type UpdateItemInput struct {
	Quantity int64 `json:"quantity" binding:"required,min=1"`
}

// UpdateItem 修改数量
// @Summary 修改购物车数量
// @Tags Cart
// @Security BearerAuth
// @Router /cart/items/{id} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var input UpdateItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.UpdateQuantity(middleware.UserIDFromContext(c), c.Param("id"), input.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// RemoveItem 移除条目
// @Summary 移除购物车条目
// @Tags Cart
// @Security BearerAuth
// @Router /cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	if err := h.service.RemoveItem(middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// Clear 清空购物车
// @Summary 清空购物车
// @Tags Cart
// @Security BearerAuth
// @Router /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(middleware.UserIDFromContext(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

func (h *CartHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Error(c, http.StatusNotFound, response.ErrCartItemNotFound, "Not found")
	case errors.Is(err, service.ErrWorkflowUnavailable),
		errors.Is(err, service.ErrPlanMismatch),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrOwnWorkflow):
		response.Error(c, http.StatusBadRequest, response.ErrWorkflowUnavailable, err.Error())
	case errors.Is(err, service.ErrNotCartOwner):
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
