package handler

import (
	"errors"
	"net/http"

	"flowmarket/internal/domain/workflow/repository"
	"flowmarket/internal/domain/workflow/service"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/pkg/response"
	"flowmarket/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type WorkflowHandler struct {
	service service.WorkflowService
}

func NewWorkflowHandler(s service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: s}
}

// CreateWorkflowInput 创建/更新工作流输入
type CreateWorkflowInput struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Platform       string `json:"platform" binding:"required,oneof=n8n zapier make airtable"`
	CategoryID     string `json:"categoryId"`
	BasePriceCents int64  `json:"basePriceCents" binding:"min=0"`
	Currency       string `json:"currency"`
}

// ListWorkflows 店面工作流列表
// @Summary 店面列表
// @Tags Workflow
// @Produce json
// @Param category query string false "Category ID"
// @Param platform query string false "Platform"
// @Param search query string false "Search"
// @Success 200 {object} response.Response
// @Router /workflows [get]
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	var p utils.Pagination
	_ = c.ShouldBindQuery(&p)
	offset, limit := p.GetPageOffset()

	workflows, total, err := h.service.ListPublished(repository.ListFilter{
		CategoryID: c.Query("category"),
		Platform:   c.Query("platform"),
		Search:     c.Query("search"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch workflows")
		return
	}

	response.Success(c, utils.PageResult{List: workflows, Total: total, Page: p.Page, Limit: p.Limit})
}

// GetWorkflow 店面工作流详情
// @Summary 店面详情
// @Tags Workflow
// @Router /workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	workflow, err := h.service.GetPublished(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrWorkflowNotFound, "Workflow not found")
		return
	}
	response.Success(c, workflow)
}

// ListCategories 分类列表
// @Summary 分类列表
// @Tags Workflow
// @Router /categories [get]
func (h *WorkflowHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch categories")
		return
	}
	response.Success(c, categories)
}

// CreateWorkflow 卖家创建工作流
// @Summary 创建工作流
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows [post]
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	var input CreateWorkflowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	workflow, err := h.service.Create(middleware.UserIDFromContext(c), service.CreateInput{
		Title:          input.Title,
		Description:    input.Description,
		Platform:       input.Platform,
		CategoryID:     input.CategoryID,
		BasePriceCents: input.BasePriceCents,
		Currency:       input.Currency,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, workflow)
}

// MyWorkflows 卖家自己的工作流列表
// @Summary 卖家工作流列表
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows [get]
func (h *WorkflowHandler) MyWorkflows(c *gin.Context) {
	var p utils.Pagination
	_ = c.ShouldBindQuery(&p)

	workflows, total, err := h.service.ListBySeller(middleware.UserIDFromContext(c), p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch workflows")
		return
	}
	response.Success(c, utils.PageResult{List: workflows, Total: total, Page: p.Page, Limit: p.Limit})
}

// UpdateWorkflow 卖家更新工作流
// @Summary 更新工作流
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows/{id} [put]
func (h *WorkflowHandler) UpdateWorkflow(c *gin.Context) {
	var input CreateWorkflowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	workflow, err := h.service.Update(middleware.UserIDFromContext(c), c.Param("id"), service.CreateInput{
		Title:          input.Title,
		Description:    input.Description,
		Platform:       input.Platform,
		CategoryID:     input.CategoryID,
		BasePriceCents: input.BasePriceCents,
		Currency:       input.Currency,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, workflow)
}

// UploadFile 上传工作流文件 (产生新版本)
// @Summary 上传工作流文件
// @Tags Seller
// @Accept multipart/form-data
// @Param file formData file true "Workflow file (json/js/zip)"
// @Param changelog formData string false "Changelog"
// @Security BearerAuth
// @Router /seller/workflows/{id}/file [post]
func (h *WorkflowHandler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "file is required")
		return
	}

	version, err := h.service.UploadFile(
		middleware.UserIDFromContext(c),
		c.Param("id"),
		c.PostForm("changelog"),
		file,
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, version)
}

// ListVersions 查看版本历史
// @Summary 版本历史
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows/{id}/versions [get]
func (h *WorkflowHandler) ListVersions(c *gin.Context) {
	versions, err := h.service.ListVersions(middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, versions)
}

// Publish 发布
// @Summary 发布工作流
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows/{id}/publish [post]
func (h *WorkflowHandler) Publish(c *gin.Context) {
	if err := h.service.Publish(middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// Unlist 下架 (不可被搜索)
// @Summary 下架工作流
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows/{id}/unlist [post]
func (h *WorkflowHandler) Unlist(c *gin.Context) {
	if err := h.service.Unlist(middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// Disable 停售
// @Summary 停售工作流
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows/{id}/disable [post]
func (h *WorkflowHandler) Disable(c *gin.Context) {
	if err := h.service.Disable(middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// AddPlanInput 新增定价方案输入
type AddPlanInput struct {
	Name       string `json:"name" binding:"required"`
	PriceCents int64  `json:"priceCents" binding:"required,min=0"`
	Features   string `json:"features"`
}

// AddPlan 新增定价方案
// @Summary 新增定价方案
// @Tags Seller
// @Security BearerAuth
// @Router /seller/workflows/{id}/plans [post]
func (h *WorkflowHandler) AddPlan(c *gin.Context) {
	var input AddPlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	plan, err := h.service.AddPlan(
		middleware.UserIDFromContext(c),
		c.Param("id"),
		input.Name,
		input.PriceCents,
		[]byte(input.Features),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, plan)
}

// RemovePlan 删除定价方案
// @Summary 删除定价方案
// @Tags Seller
// @Security BearerAuth
// @Router /seller/plans/{id} [delete]
func (h *WorkflowHandler) RemovePlan(c *gin.Context) {
	if err := h.service.RemovePlan(middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// CategoryInput 分类输入
type CategoryInput struct {
	Name string `json:"name" binding:"required"`
}

// CreateCategory 管理员创建分类
// @Summary 创建分类
// @Tags Admin
// @Security BearerAuth
// @Router /admin/categories [post]
func (h *WorkflowHandler) CreateCategory(c *gin.Context) {
	var input CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	category, err := h.service.CreateCategory(input.Name)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, category)
}

// DeleteCategory 管理员删除分类
// @Summary 删除分类
// @Tags Admin
// @Security BearerAuth
// @Router /admin/categories/{id} [delete]
func (h *WorkflowHandler) DeleteCategory(c *gin.Context) {
	if err := h.service.DeleteCategory(c.Param("id")); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, true)
}

// AdminDisable 平台下架
// @Summary 平台下架工作流
// @Tags Admin
// @Security BearerAuth
// @Router /admin/workflows/{id}/disable [post]
func (h *WorkflowHandler) AdminDisable(c *gin.Context) {
	if err := h.service.AdminSetDisabled(c.Param("id"), true); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// AdminEnable 平台恢复
// @Summary 平台恢复工作流
// @Tags Admin
// @Security BearerAuth
// @Router /admin/workflows/{id}/enable [post]
func (h *WorkflowHandler) AdminEnable(c *gin.Context) {
	if err := h.service.AdminSetDisabled(c.Param("id"), false); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

func (h *WorkflowHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Error(c, http.StatusNotFound, response.ErrWorkflowNotFound, "Workflow not found")
	case errors.Is(err, service.ErrNotOwner):
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAdminDisabled),
		errors.Is(err, service.ErrNoFile),
		errors.Is(err, service.ErrInvalidPlatform):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidTransition, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
