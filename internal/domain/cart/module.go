package cart

import (
	"flowmarket/internal/domain/cart/handler"
	"flowmarket/internal/domain/cart/repository"
	"flowmarket/internal/domain/cart/service"
	workflowRepo "flowmarket/internal/domain/workflow/repository"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CartModule 购物车模块
type CartModule struct{}

func init() {
	registry.Register(&CartModule{})
}

func (m *CartModule) Name() string {
	return "cart"
}

func (m *CartModule) Priority() int {
	// 依赖 workflow 模块
	return 15
}

func (m *CartModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewCartRepository(ctx.DB)
	wRepo := workflowRepo.NewWorkflowRepository(ctx.DB)
	svc := service.NewCartService(repo, wRepo)
	h := handler.NewCartHandler(svc)

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CartHandler) {
	g := r.Group("/cart")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.GetCart)
		g.DELETE("", h.Clear)
		g.POST("/items", h.AddItem)
		g.PUT("/items/:id", h.UpdateItem)
		g.DELETE("/items/:id", h.RemoveItem)
	}
}
