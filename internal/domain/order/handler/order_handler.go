package handler

import (
	"errors"
	"io"
	"net/http"

	"flowmarket/internal/domain/order/service"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/pkg/logger"
	"flowmarket/pkg/response"
	"flowmarket/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

type CheckoutInput struct {
	SuccessURL string `json:"success_url" binding:"omitempty,url"`
	CancelURL  string `json:"cancel_url" binding:"omitempty,url"`
}

// Checkout 购物车结算
// @Summary 购物车结算
// @Description 按卖家分组建单并创建托管支付会话，全免费购物车直接完成
// @Tags Order
// @Accept json
// @Produce json
// @Param input body CheckoutInput false "Redirect URLs"
// @Success 200 {object} response.Response{data=service.CheckoutResult}
// @Security BearerAuth
// @Router /checkout/cart [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := middleware.UserIDFromContext(c)
	result, err := h.service.Checkout(userID, input.SuccessURL, input.CancelURL)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	response.Success(c, result)
}

// StripeWebhook Stripe 回调入口，验签在策略内完成
// @Summary Stripe 回调
// @Tags Order
// @Router /payments/webhook/stripe [post]
func (h *OrderHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.service.HandleStripeWebhook(payload, signature); err != nil {
		logger.Log.Error("stripe webhook failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// AlipayNotify 支付宝异步通知
// @Summary 支付宝回调
// @Tags Order
// @Router /payments/notify/alipay [post]
func (h *OrderHandler) AlipayNotify(c *gin.Context) {
	// 支付宝回调是 POST Form 格式
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusOK, "fail")
		return
	}
	if err := h.service.HandleNotify("alipay", c.Request.Form); err != nil {
		logger.Log.Error("alipay notify failed", zap.Error(err))
		c.String(http.StatusOK, "fail") // 告诉支付宝处理失败，它会重试
		return
	}
	c.String(http.StatusOK, "success")
}

// WechatNotify 微信支付异步通知
// @Summary 微信支付回调
// @Tags Order
// @Router /payments/notify/wechat [post]
func (h *OrderHandler) WechatNotify(c *gin.Context) {
	// 微信回调是 JSON 格式，验签需要整个 *http.Request
	if err := h.service.HandleNotify("wechat", c.Request); err != nil {
		logger.Log.Error("wechat notify failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"code": "FAIL", "message": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// ListMyOrders 我的订单
// @Summary 我的订单
// @Tags Order
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Security BearerAuth
// @Router /orders [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := middleware.UserIDFromContext(c)
	orders, total, err := h.service.ListMyOrders(userID, &p)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: orders, Total: total, Page: p.Page, Limit: p.Limit})
}

// GetOrder 订单详情（买家或卖家）
// @Summary 订单详情
// @Tags Order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	order, err := h.service.GetOrder(userID, c.Param("id"))
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	response.Success(c, order)
}

// Library 已购工作流清单
// @Summary 我的资料库
// @Tags Order
// @Produce json
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /library [get]
func (h *OrderHandler) Library(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	items, err := h.service.Library(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, items)
}

// Download 获取已购工作流的下载地址
// @Summary 下载已购工作流
// @Tags Order
// @Produce json
// @Param workflowId path string true "Workflow ID"
// @Success 200 {object} response.Response{data=string}
// @Security BearerAuth
// @Router /library/{workflowId}/download [get]
func (h *OrderHandler) Download(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	fileURL, err := h.service.Download(userID, c.Param("workflowId"))
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	response.Success(c, gin.H{"file_url": fileURL})
}

// ListSales 卖家售出订单
// @Summary 我的售出
// @Tags Order
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Security BearerAuth
// @Router /seller/sales [get]
func (h *OrderHandler) ListSales(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	sellerID := middleware.UserIDFromContext(c)
	orders, total, err := h.service.ListSales(sellerID, &p)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: orders, Total: total, Page: p.Page, Limit: p.Limit})
}

// Revenue 卖家营收汇总
// @Summary 我的营收
// @Tags Order
// @Produce json
// @Success 200 {object} response.Response{data=repository.RevenueSummary}
// @Security BearerAuth
// @Router /seller/revenue [get]
func (h *OrderHandler) Revenue(c *gin.Context) {
	sellerID := middleware.UserIDFromContext(c)
	summary, err := h.service.Revenue(sellerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, summary)
}

// AdminListOrders 管理员订单列表
// @Summary 订单列表 (管理员)
// @Tags Admin
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Security BearerAuth
// @Router /admin/orders [get]
func (h *OrderHandler) AdminListOrders(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	orders, total, err := h.service.AdminList(c.Query("status"), &p)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, utils.PageResult{List: orders, Total: total, Page: p.Page, Limit: p.Limit})
}

type OverrideStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending paid failed cancelled refunded"`
}

// AdminOverrideStatus 管理员改单
// @Summary 修改订单状态 (管理员)
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body OverrideStatusInput true "Target status"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /admin/orders/{id}/status [put]
func (h *OrderHandler) AdminOverrideStatus(c *gin.Context) {
	var input OverrideStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.AdminOverrideStatus(c.Param("id"), input.Status); err != nil {
		writeCheckoutError(c, err)
		return
	}
	response.Success(c, nil)
}

// writeCheckoutError 业务错误到响应码的映射
func writeCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCartEmpty):
		response.Error(c, http.StatusBadRequest, response.ErrCartEmpty, err.Error())
	case errors.Is(err, service.ErrCheckoutInProgress):
		response.Error(c, http.StatusConflict, response.ErrCheckoutInProgress, err.Error())
	case errors.Is(err, service.ErrWorkflowUnavailable):
		response.Error(c, http.StatusBadRequest, response.ErrWorkflowUnavailable, err.Error())
	case errors.Is(err, service.ErrSellerNotReady):
		response.Error(c, http.StatusBadRequest, response.ErrSellerNotReady, err.Error())
	case errors.Is(err, service.ErrAlreadyOwned):
		response.Error(c, http.StatusBadRequest, response.ErrAlreadyOwned, err.Error())
	case errors.Is(err, service.ErrCurrencyMismatch):
		response.Error(c, http.StatusBadRequest, response.ErrCurrencyMismatch, err.Error())
	case errors.Is(err, service.ErrSessionFailed):
		response.Error(c, http.StatusBadGateway, response.ErrSessionCreateFailed, err.Error())
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrNotPurchased):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
	case errors.Is(err, service.ErrOrderFinal):
		response.Error(c, http.StatusConflict, response.ErrOrderStatusFinal, err.Error())
	case errors.Is(err, service.ErrInvalidStatusChange):
		response.Error(c, http.StatusConflict, response.ErrOrderStatusChange, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
