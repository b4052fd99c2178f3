package model

import (
	"encoding/json"

	baseModel "flowmarket/pkg/model"
)

// Workflow 工作流商品，卖家上传的自动化流程文件
type Workflow struct {
	baseModel.BaseModel
	SellerID    string `gorm:"type:uuid;index;not null" json:"sellerId"`
	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"unique;not null" json:"slug"`
	Description string `json:"description"`
	// 目标平台: n8n, zapier, make, airtable
	Platform   string `gorm:"index" json:"platform"`
	Status     string `gorm:"default:'draft';index" json:"status"`
	CategoryID string `gorm:"type:uuid;index" json:"categoryId"`

	BasePriceCents int64  `gorm:"not null;default:0" json:"basePriceCents"`
	Currency       string `gorm:"type:varchar(3);default:'usd'" json:"currency"`

	// 当前版本的文件地址 (OSS)
	FileURL       string `json:"fileUrl"`
	DownloadCount int64  `gorm:"default:0" json:"downloadCount"`

	// 关联
	PricingPlans []PricingPlan     `json:"pricingPlans,omitempty"`
	Versions     []WorkflowVersion `json:"versions,omitempty"`
}

// WorkflowVersion 版本快照，每次上传文件产生一条
type WorkflowVersion struct {
	baseModel.BaseModel
	WorkflowID string `gorm:"type:uuid;index;not null" json:"workflowId"`
	Version    int    `gorm:"not null" json:"version"`
	FileURL    string `gorm:"not null" json:"fileUrl"`
	Changelog  string `json:"changelog"`
}

// PricingPlan 定价方案，覆盖基础价格 (如 basic / pro / 带安装服务)
type PricingPlan struct {
	baseModel.BaseModel
	WorkflowID string          `gorm:"type:uuid;index;not null" json:"workflowId"`
	Name       string          `gorm:"not null" json:"name"`
	PriceCents int64           `gorm:"not null" json:"priceCents"`
	Features   json.RawMessage `gorm:"type:jsonb" json:"features,omitempty"`
}

// Category 分类
type Category struct {
	baseModel.BaseModel
	Name string `gorm:"unique;not null" json:"name"`
	Slug string `gorm:"unique;not null" json:"slug"`
}

const (
	StatusDraft         = "draft"
	StatusPublished     = "published"
	StatusUnlisted      = "unlisted"
	StatusDisabled      = "disabled"       // 卖家自行下架
	StatusAdminDisabled = "admin_disabled" // 平台下架，卖家无法恢复

	PlatformN8N      = "n8n"
	PlatformZapier   = "zapier"
	PlatformMake     = "make"
	PlatformAirtable = "airtable"
)

// Purchasable 工作流本身是否可售 (卖家收款状态由订单侧再校验)
func (w *Workflow) Purchasable() bool {
	return w.Status == StatusPublished
}
