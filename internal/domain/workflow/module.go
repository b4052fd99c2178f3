package workflow

import (
	"flowmarket/internal/domain/workflow/handler"
	"flowmarket/internal/domain/workflow/repository"
	"flowmarket/internal/domain/workflow/service"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/internal/pkg/registry"
	"flowmarket/internal/pkg/uploader"

	"github.com/gin-gonic/gin"
)

// WorkflowModule 工作流模块
type WorkflowModule struct{}

func init() {
	registry.Register(&WorkflowModule{})
}

func (m *WorkflowModule) Name() string {
	return "workflow"
}

func (m *WorkflowModule) Priority() int {
	return 10
}

func (m *WorkflowModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	repo := repository.NewWorkflowRepository(ctx.DB)
	svc := service.NewWorkflowService(repo, ctx.Cache, uploader.GlobalUploader)
	h := handler.NewWorkflowHandler(svc)

	// 2. 路由注册
	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.WorkflowHandler) {
	// 店面 (公开)
	r.GET("/workflows", h.ListWorkflows)
	r.GET("/workflows/:id", h.GetWorkflow)
	r.GET("/categories", h.ListCategories)

	// 卖家端
	sellerGroup := r.Group("/seller")
	sellerGroup.Use(middleware.AuthMiddleware(), middleware.SellerMiddleware())
	{
		sellerGroup.POST("/workflows", h.CreateWorkflow)
		sellerGroup.GET("/workflows", h.MyWorkflows)
		sellerGroup.PUT("/workflows/:id", h.UpdateWorkflow)
		sellerGroup.POST("/workflows/:id/file", h.UploadFile)
		sellerGroup.GET("/workflows/:id/versions", h.ListVersions)
		sellerGroup.POST("/workflows/:id/publish", h.Publish)
		sellerGroup.POST("/workflows/:id/unlist", h.Unlist)
		sellerGroup.POST("/workflows/:id/disable", h.Disable)
		sellerGroup.POST("/workflows/:id/plans", h.AddPlan)
		sellerGroup.DELETE("/plans/:id", h.RemovePlan)
	}

	// 管理端
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.POST("/categories", h.CreateCategory)
		adminGroup.DELETE("/categories/:id", h.DeleteCategory)
		adminGroup.POST("/workflows/:id/disable", h.AdminDisable)
		adminGroup.POST("/workflows/:id/enable", h.AdminEnable)
	}
}
