package notification

import (
	"flowmarket/internal/domain/notification/handler"
	"flowmarket/internal/domain/notification/repository"
	"flowmarket/internal/domain/notification/service"
	userRepo "flowmarket/internal/domain/user/repository"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// NotificationModule 通知模块
type NotificationModule struct{}

func init() {
	registry.Register(&NotificationModule{})
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) Priority() int {
	return 30
}

func (m *NotificationModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewNotificationRepository(ctx.DB)
	uRepo := userRepo.NewUserRepository(ctx.DB)
	svc := service.NewNotificationService(repo, uRepo, ctx.Mail, ctx.Push)
	h := handler.NewNotificationHandler(svc)

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.NotificationHandler) {
	g := r.Group("/notifications")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.List)
		g.GET("/unread-count", h.UnreadCount)
		g.PUT("/:id/read", h.MarkRead)
		g.PUT("/read-all", h.MarkAllRead)
	}

	admin := r.Group("/admin/notifications")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("/broadcast", h.Broadcast)
	}
}
