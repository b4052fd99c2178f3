package user

import (
	"flowmarket/internal/domain/user/handler"
	"flowmarket/internal/domain/user/repository"
	"flowmarket/internal/domain/user/service"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/internal/pkg/otp"
	"flowmarket/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，因为其他模块都依赖它
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	userRepo := repository.NewUserRepository(ctx.DB)
	otpService := otp.NewOTPService(ctx.Redis)
	userService := service.NewUserService(userRepo, otpService, ctx.Mailer)
	userHandler := handler.NewUserHandler(userService)

	// 2. 路由注册
	setupRoutes(ctx.Router, userHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler) {
	// 公开路由
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/otp", h.SendOTP)
		authGroup.POST("/login/otp", h.LoginWithOTP)
	}

	// 受保护的路由
	userGroup := r.Group("/users")
	userGroup.Use(middleware.AuthMiddleware())
	{
		userGroup.GET("/me", h.Me)
		userGroup.PUT("/me", h.UpdateMe)
	}

	sellerGroup := r.Group("/sellers")
	sellerGroup.Use(middleware.AuthMiddleware())
	{
		sellerGroup.POST("/apply", h.BecomeSeller)
		sellerGroup.POST("/payout-account", h.SubmitPayoutAccount)
	}

	// 管理端
	adminGroup := r.Group("/admin/users")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.GET("", h.GetUsers)
		adminGroup.POST("/:id/ban", h.BanUser)
		adminGroup.POST("/:id/unban", h.UnbanUser)
		adminGroup.DELETE("/:id", h.DeleteUser)
	}
}
