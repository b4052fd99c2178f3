package order

import (
	cartRepo "flowmarket/internal/domain/cart/repository"
	notificationRepo "flowmarket/internal/domain/notification/repository"
	notificationService "flowmarket/internal/domain/notification/service"
	"flowmarket/internal/domain/order/handler"
	"flowmarket/internal/domain/order/repository"
	"flowmarket/internal/domain/order/service"
	"flowmarket/internal/domain/order/strategy"
	userRepo "flowmarket/internal/domain/user/repository"
	userService "flowmarket/internal/domain/user/service"
	workflowRepo "flowmarket/internal/domain/workflow/repository"
	"flowmarket/internal/pkg/config"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/internal/pkg/otp"
	"flowmarket/internal/pkg/registry"
	"flowmarket/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderModule 订单与结算模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	// 依赖 user / workflow / cart 模块
	return 20
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	oRepo := repository.NewOrderRepository(ctx.DB)
	cRepo := cartRepo.NewCartRepository(ctx.DB)
	wRepo := workflowRepo.NewWorkflowRepository(ctx.DB)
	uRepo := userRepo.NewUserRepository(ctx.DB)
	uService := userService.NewUserService(uRepo, otp.NewOTPService(ctx.Redis), ctx.Mailer)

	nRepo := notificationRepo.NewNotificationRepository(ctx.DB)
	notifier := notificationService.NewNotificationService(nRepo, uRepo, ctx.Mail, ctx.Push)

	oService := service.NewOrderService(
		oRepo, cRepo, wRepo, uRepo, uService,
		ctx.Redis, notifier, ctx.Mail, ctx.Push, ctx.Metrics,
	)

	// 2. 按配置顺序注册支付策略
	for _, name := range config.GlobalConfig.Checkout.Providers {
		st, err := newStrategy(name)
		if err != nil {
			logger.Log.Error("init payment strategy failed",
				zap.String("provider", name), zap.Error(err))
			continue
		}
		oService.RegisterStrategy(st)
		logger.Log.Info("payment strategy registered", zap.String("provider", name))
	}

	h := handler.NewOrderHandler(oService)

	// 3. 路由注册
	setupRoutes(ctx.Router, h)
	return nil
}

func newStrategy(name string) (strategy.PaymentStrategy, error) {
	switch name {
	case "stripe":
		return strategy.NewStripeStrategy()
	case "alipay":
		return strategy.NewAlipayStrategy()
	case "wechat":
		return strategy.NewWechatStrategy()
	default:
		return nil, service.ErrUnknownChannel
	}
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler) {
	// 支付回调 (无需鉴权，但需验签)
	payments := r.Group("/payments")
	{
		payments.POST("/webhook/stripe", h.StripeWebhook)
		payments.POST("/notify/alipay", h.AlipayNotify)
		payments.POST("/notify/wechat", h.WechatNotify)
	}

	// 结算，单独限流
	checkout := r.Group("/checkout")
	checkout.Use(middleware.AuthMiddleware(), middleware.CheckoutRateLimitMiddleware())
	{
		checkout.POST("/cart", h.Checkout)
	}

	auth := r.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.GET("/orders", h.ListMyOrders)
		auth.GET("/orders/:id", h.GetOrder)
		auth.GET("/library", h.Library)
		auth.GET("/library/:workflowId/download", h.Download)
	}

	seller := r.Group("/seller")
	seller.Use(middleware.AuthMiddleware(), middleware.SellerMiddleware())
	{
		seller.GET("/sales", h.ListSales)
		seller.GET("/revenue", h.Revenue)
	}

	admin := r.Group("/admin/orders")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("", h.AdminListOrders)
		admin.PUT("/:id/status", h.AdminOverrideStatus)
	}
}
