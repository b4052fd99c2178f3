package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"flowmarket/internal/domain/workflow/model"
	"flowmarket/internal/domain/workflow/repository"
	"flowmarket/internal/pkg/uploader"
	"flowmarket/pkg/cache"
	"flowmarket/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotOwner          = errors.New("workflow does not belong to this seller")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAdminDisabled     = errors.New("workflow was disabled by the platform")
	ErrNoFile            = errors.New("workflow has no uploaded file")
	ErrInvalidPlatform   = errors.New("unsupported platform")
)

var validPlatforms = map[string]bool{
	model.PlatformN8N:      true,
	model.PlatformZapier:   true,
	model.PlatformMake:     true,
	model.PlatformAirtable: true,
}

// 缓存键
const (
	listCachePrefix   = "workflows:list:"
	detailCachePrefix = "workflows:detail:"
	listCacheTTL      = 5 * time.Minute
	detailCacheTTL    = 30 * time.Minute
)

// CreateInput 创建工作流输入
type CreateInput struct {
	Title          string
	Description    string
	Platform       string
	CategoryID     string
	BasePriceCents int64
	Currency       string
}

// WorkflowService 工作流服务接口
type WorkflowService interface {
	Create(sellerID string, in CreateInput) (*model.Workflow, error)
	Get(id string) (*model.Workflow, error)
	GetPublished(id string) (*model.Workflow, error)
	ListPublished(filter repository.ListFilter) ([]model.Workflow, int64, error)
	ListBySeller(sellerID string, page, limit int) ([]model.Workflow, int64, error)
	Update(sellerID, id string, in CreateInput) (*model.Workflow, error)
	UploadFile(sellerID, id, changelog string, file *multipart.FileHeader) (*model.WorkflowVersion, error)
	ListVersions(sellerID, id string) ([]model.WorkflowVersion, error)
	Publish(sellerID, id string) error
	Unlist(sellerID, id string) error
	Disable(sellerID, id string) error
	AdminSetDisabled(id string, disabled bool) error
	RecordDownload(id string) error

	AddPlan(sellerID, workflowID, name string, priceCents int64, features []byte) (*model.PricingPlan, error)
	RemovePlan(sellerID, planID string) error

	CreateCategory(name string) (*model.Category, error)
	ListCategories() ([]model.Category, error)
	DeleteCategory(id string) error
}

type workflowService struct {
	repo     repository.WorkflowRepository
	cache    cache.CacheService
	uploader uploader.Uploader
}

func NewWorkflowService(repo repository.WorkflowRepository, c cache.CacheService, up uploader.Uploader) WorkflowService {
	return &workflowService{repo: repo, cache: c, uploader: up}
}

func (s *workflowService) Create(sellerID string, in CreateInput) (*model.Workflow, error) {
	if !validPlatforms[in.Platform] {
		return nil, ErrInvalidPlatform
	}

	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = "usd"
	}

	workflow := &model.Workflow{
		SellerID:       sellerID,
		Title:          in.Title,
		Slug:           makeSlug(in.Title),
		Description:    in.Description,
		Platform:       in.Platform,
		CategoryID:     in.CategoryID,
		Status:         model.StatusDraft,
		BasePriceCents: in.BasePriceCents,
		Currency:       currency,
	}

	if err := s.repo.Create(workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

func (s *workflowService) Get(id string) (*model.Workflow, error) {
	return s.repo.GetByID(id)
}

// GetPublished 店面详情，带缓存，只返回已发布的
func (s *workflowService) GetPublished(id string) (*model.Workflow, error) {
	ctx := context.Background()
	key := detailCachePrefix + id

	if s.cache != nil {
		var cached model.Workflow
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	workflow, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !workflow.Purchasable() {
		return nil, ErrInvalidTransition
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, workflow, detailCacheTTL); err != nil {
			logger.Log.Sugar().Warnf("failed to cache workflow %s: %v", id, err)
		}
	}
	return workflow, nil
}

// ListPublished 店面列表，带缓存
func (s *workflowService) ListPublished(filter repository.ListFilter) ([]model.Workflow, int64, error) {
	ctx := context.Background()
	key := fmt.Sprintf("%s%s:%s:%s:%d:%d",
		listCachePrefix, filter.CategoryID, filter.Platform, filter.Search, filter.Offset, filter.Limit)

	type cachedList struct {
		Workflows []model.Workflow `json:"workflows"`
		Total     int64            `json:"total"`
	}

	if s.cache != nil {
		var cached cachedList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Workflows, cached.Total, nil
		}
	}

	workflows, total, err := s.repo.ListPublished(filter)
	if err != nil {
		return nil, 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedList{Workflows: workflows, Total: total}, listCacheTTL); err != nil {
			logger.Log.Sugar().Warnf("failed to cache workflow list: %v", err)
		}
	}
	return workflows, total, nil
}

func (s *workflowService) ListBySeller(sellerID string, page, limit int) ([]model.Workflow, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListBySeller(sellerID, (page-1)*limit, limit)
}

func (s *workflowService) Update(sellerID, id string, in CreateInput) (*model.Workflow, error) {
	workflow, err := s.ownedWorkflow(sellerID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != "" {
		workflow.Title = in.Title
	}
	if in.Description != "" {
		workflow.Description = in.Description
	}
	if in.Platform != "" {
		if !validPlatforms[in.Platform] {
			return nil, ErrInvalidPlatform
		}
		workflow.Platform = in.Platform
	}
	if in.CategoryID != "" {
		workflow.CategoryID = in.CategoryID
	}
	if in.BasePriceCents > 0 {
		workflow.BasePriceCents = in.BasePriceCents
	}
	if in.Currency != "" {
		workflow.Currency = strings.ToLower(in.Currency)
	}

	if err := s.repo.Update(workflow); err != nil {
		return nil, err
	}
	s.invalidateCaches(id)
	return workflow, nil
}

// UploadFile 上传文件并记录新版本
func (s *workflowService) UploadFile(sellerID, id, changelog string, file *multipart.FileHeader) (*model.WorkflowVersion, error) {
	workflow, err := s.ownedWorkflow(sellerID, id)
	if err != nil {
		return nil, err
	}

	url, err := s.uploader.UploadWorkflowFile(sellerID, file)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.LatestVersion(id)
	if err != nil {
		return nil, err
	}

	version := &model.WorkflowVersion{
		WorkflowID: id,
		Version:    latest + 1,
		FileURL:    url,
		Changelog:  changelog,
	}
	if err := s.repo.CreateVersion(version); err != nil {
		return nil, err
	}

	workflow.FileURL = url
	if err := s.repo.Update(workflow); err != nil {
		return nil, err
	}
	s.invalidateCaches(id)

	return version, nil
}

func (s *workflowService) ListVersions(sellerID, id string) ([]model.WorkflowVersion, error) {
	if _, err := s.ownedWorkflow(sellerID, id); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(id)
}

// Publish 发布，必须已有上传文件
func (s *workflowService) Publish(sellerID, id string) error {
	return s.transition(sellerID, id, model.StatusPublished)
}

// Unlist 下架为不可见但保留直链购买以外的状态
func (s *workflowService) Unlist(sellerID, id string) error {
	return s.transition(sellerID, id, model.StatusUnlisted)
}

// Disable 卖家自行停售
func (s *workflowService) Disable(sellerID, id string) error {
	return s.transition(sellerID, id, model.StatusDisabled)
}

func (s *workflowService) transition(sellerID, id, target string) error {
	workflow, err := s.ownedWorkflow(sellerID, id)
	if err != nil {
		return err
	}

	// 平台下架的工作流卖家不能操作
	if workflow.Status == model.StatusAdminDisabled {
		return ErrAdminDisabled
	}

	if target == model.StatusPublished && workflow.FileURL == "" {
		return ErrNoFile
	}
	if workflow.Status == target {
		return ErrInvalidTransition
	}

	workflow.Status = target
	if err := s.repo.Update(workflow); err != nil {
		return err
	}
	s.invalidateCaches(id)
	return nil
}

// AdminSetDisabled 平台下架/恢复，恢复后回到 disabled 状态由卖家重新发布
func (s *workflowService) AdminSetDisabled(id string, disabled bool) error {
	workflow, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if disabled {
		workflow.Status = model.StatusAdminDisabled
	} else {
		if workflow.Status != model.StatusAdminDisabled {
			return ErrInvalidTransition
		}
		workflow.Status = model.StatusDisabled
	}

	if err := s.repo.Update(workflow); err != nil {
		return err
	}
	s.invalidateCaches(id)
	return nil
}

func (s *workflowService) RecordDownload(id string) error {
	return s.repo.IncrementDownloads(id)
}

func (s *workflowService) AddPlan(sellerID, workflowID, name string, priceCents int64, features []byte) (*model.PricingPlan, error) {
	if _, err := s.ownedWorkflow(sellerID, workflowID); err != nil {
		return nil, err
	}

	plan := &model.PricingPlan{
		WorkflowID: workflowID,
		Name:       name,
		PriceCents: priceCents,
		Features:   features,
	}
	if err := s.repo.CreatePlan(plan); err != nil {
		return nil, err
	}
	s.invalidateCaches(workflowID)
	return plan, nil
}

func (s *workflowService) RemovePlan(sellerID, planID string) error {
	plan, err := s.repo.GetPlan(planID)
	if err != nil {
		return err
	}
	if _, err := s.ownedWorkflow(sellerID, plan.WorkflowID); err != nil {
		return err
	}
	if err := s.repo.DeletePlan(planID); err != nil {
		return err
	}
	s.invalidateCaches(plan.WorkflowID)
	return nil
}

func (s *workflowService) CreateCategory(name string) (*model.Category, error) {
	category := &model.Category{
		Name: name,
		Slug: makeSlug(name),
	}
	if err := s.repo.CreateCategory(category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *workflowService) ListCategories() ([]model.Category, error) {
	return s.repo.ListCategories()
}

func (s *workflowService) DeleteCategory(id string) error {
	return s.repo.DeleteCategory(id)
}

// ownedWorkflow 读取并校验归属
func (s *workflowService) ownedWorkflow(sellerID, id string) (*model.Workflow, error) {
	workflow, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if workflow.SellerID != sellerID {
		return nil, ErrNotOwner
	}
	return workflow, nil
}

func (s *workflowService) invalidateCaches(id string) {
	if s.cache == nil {
		return
	}
	ctx := context.Background()
	if err := s.cache.Delete(ctx, detailCachePrefix+id); err != nil {
		logger.Log.Sugar().Warnf("failed to invalidate workflow cache: %v", err)
	}
	if err := s.cache.InvalidatePattern(ctx, listCachePrefix+"*"); err != nil {
		logger.Log.Sugar().Warnf("failed to invalidate workflow list cache: %v", err)
	}
}

// makeSlug 标题转 slug，追加短随机后缀避免撞车
func makeSlug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "workflow"
	}
	return slug + "-" + uuid.New().String()[:8]
}
