package repository

import (
	"flowmarket/internal/domain/workflow/model"

	"gorm.io/gorm"
)

// ListFilter 店面列表过滤条件
type ListFilter struct {
	CategoryID string
	Platform   string
	Search     string
	Offset     int
	Limit      int
}

type WorkflowRepository interface {
	Create(workflow *model.Workflow) error
	GetByID(id string) (*model.Workflow, error)
	GetBySlug(slug string) (*model.Workflow, error)
	ListPublished(filter ListFilter) ([]model.Workflow, int64, error)
	ListBySeller(sellerID string, offset, limit int) ([]model.Workflow, int64, error)
	Update(workflow *model.Workflow) error
	IncrementDownloads(id string) error

	CreateVersion(version *model.WorkflowVersion) error
	LatestVersion(workflowID string) (int, error)
	ListVersions(workflowID string) ([]model.WorkflowVersion, error)

	CreatePlan(plan *model.PricingPlan) error
	GetPlan(id string) (*model.PricingPlan, error)
	DeletePlan(id string) error

	CreateCategory(category *model.Category) error
	GetCategory(id string) (*model.Category, error)
	ListCategories() ([]model.Category, error)
	UpdateCategory(category *model.Category) error
	DeleteCategory(id string) error
}

type workflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(workflow *model.Workflow) error {
	return r.db.Create(workflow).Error
}

func (r *workflowRepository) GetByID(id string) (*model.Workflow, error) {
	var workflow model.Workflow
	if err := r.db.Preload("PricingPlans").Where("id = ?", id).First(&workflow).Error; err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *workflowRepository) GetBySlug(slug string) (*model.Workflow, error) {
	var workflow model.Workflow
	if err := r.db.Preload("PricingPlans").Where("slug = ?", slug).First(&workflow).Error; err != nil {
		return nil, err
	}
	return &workflow, nil
}

// ListPublished 店面列表，只返回已发布的
func (r *workflowRepository) ListPublished(filter ListFilter) ([]model.Workflow, int64, error) {
	var workflows []model.Workflow
	var total int64

	q := r.db.Model(&model.Workflow{}).Where("status = ?", model.StatusPublished)
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Platform != "" {
		q = q.Where("platform = ?", filter.Platform)
	}
	if filter.Search != "" {
		q = q.Where("title ILIKE ?", "%"+filter.Search+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := q.Preload("PricingPlans").
		Order("created_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&workflows).Error; err != nil {
		return nil, 0, err
	}
	return workflows, total, nil
}

func (r *workflowRepository) ListBySeller(sellerID string, offset, limit int) ([]model.Workflow, int64, error) {
	var workflows []model.Workflow
	var total int64

	q := r.db.Model(&model.Workflow{}).Where("seller_id = ?", sellerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := q.Preload("PricingPlans").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&workflows).Error; err != nil {
		return nil, 0, err
	}
	return workflows, total, nil
}

func (r *workflowRepository) Update(workflow *model.Workflow) error {
	return r.db.Save(workflow).Error
}

func (r *workflowRepository) IncrementDownloads(id string) error {
	return r.db.Model(&model.Workflow{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

func (r *workflowRepository) CreateVersion(version *model.WorkflowVersion) error {
	return r.db.Create(version).Error
}

// LatestVersion 返回最新版本号，没有版本时返回 0
func (r *workflowRepository) LatestVersion(workflowID string) (int, error) {
	var version model.WorkflowVersion
	err := r.db.Where("workflow_id = ?", workflowID).
		Order("version DESC").
		First(&version).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return version.Version, nil
}

func (r *workflowRepository) ListVersions(workflowID string) ([]model.WorkflowVersion, error) {
	var versions []model.WorkflowVersion
	err := r.db.Where("workflow_id = ?", workflowID).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}

func (r *workflowRepository) CreatePlan(plan *model.PricingPlan) error {
	return r.db.Create(plan).Error
}

func (r *workflowRepository) GetPlan(id string) (*model.PricingPlan, error) {
	var plan model.PricingPlan
	if err := r.db.Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *workflowRepository) DeletePlan(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.PricingPlan{}).Error
}

func (r *workflowRepository) CreateCategory(category *model.Category) error {
	return r.db.Create(category).Error
}

func (r *workflowRepository) GetCategory(id string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *workflowRepository) ListCategories() ([]model.Category, error) {
	var categories []model.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *workflowRepository) UpdateCategory(category *model.Category) error {
	return r.db.Save(category).Error
}

func (r *workflowRepository) DeleteCategory(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.Category{}).Error
}
