package model

import (
	baseModel "flowmarket/pkg/model"
)

// Cart 购物车，每个用户同一时间最多一个
type Cart struct {
	baseModel.BaseModel
	UserID string     `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// CartItem 购物车条目，价格不落库，结算时实时解析
type CartItem struct {
	baseModel.BaseModel
	CartID        string  `gorm:"type:uuid;index;not null" json:"cartId"`
	WorkflowID    string  `gorm:"type:uuid;not null" json:"workflowId"`
	PricingPlanID *string `gorm:"type:uuid" json:"pricingPlanId,omitempty"`
	Quantity      int64   `gorm:"not null;default:1" json:"quantity"`
}
