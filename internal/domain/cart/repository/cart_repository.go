package repository

import (
	"errors"

	"flowmarket/internal/domain/cart/model"

	"gorm.io/gorm"
)

type CartRepository interface {
	GetOrCreateByUser(userID string) (*model.Cart, error)
	GetByUser(userID string) (*model.Cart, error)
	AddItem(cartID, workflowID string, planID *string, quantity int64) (*model.CartItem, error)
	GetItem(itemID string) (*model.CartItem, error)
	UpdateItemQuantity(itemID string, quantity int64) error
	RemoveItem(itemID string) error
	ClearItems(cartID string) error
	DeleteCart(cartID string) error
	DeleteCartTx(tx *gorm.DB, cartID string) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// GetOrCreateByUser 获取用户购物车，不存在则创建
// users.user_id 上有唯一索引，并发创建时重试读取
func (r *cartRepository) GetOrCreateByUser(userID string) (*model.Cart, error) {
	cart, err := r.GetByUser(userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &model.Cart{UserID: userID}
	if err := r.db.Create(cart).Error; err != nil {
		// 唯一约束冲突说明并发创建，重新读取
		if existing, retryErr := r.GetByUser(userID); retryErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return cart, nil
}

func (r *cartRepository) GetByUser(userID string) (*model.Cart, error) {
	var cart model.Cart
	if err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem 添加条目，同一 (workflow, plan) 已存在时累加数量
func (r *cartRepository) AddItem(cartID, workflowID string, planID *string, quantity int64) (*model.CartItem, error) {
	var existing model.CartItem
	q := r.db.Where("cart_id = ? AND workflow_id = ?", cartID, workflowID)
	if planID != nil {
		q = q.Where("pricing_plan_id = ?", *planID)
	} else {
		q = q.Where("pricing_plan_id IS NULL")
	}

	err := q.First(&existing).Error
	if err == nil {
		existing.Quantity += quantity
		if err := r.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	item := &model.CartItem{
		CartID:        cartID,
		WorkflowID:    workflowID,
		PricingPlanID: planID,
		Quantity:      quantity,
	}
	if err := r.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) GetItem(itemID string) (*model.CartItem, error) {
	var item model.CartItem
	if err := r.db.Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) UpdateItemQuantity(itemID string, quantity int64) error {
	return r.db.Model(&model.CartItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity", quantity).Error
}

func (r *cartRepository) RemoveItem(itemID string) error {
	return r.db.Where("id = ?", itemID).Delete(&model.CartItem{}).Error
}

func (r *cartRepository) ClearItems(cartID string) error {
	return r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}

// DeleteCart 删除购物车及其条目，支付回调在整单付清后调用
func (r *cartRepository) DeleteCart(cartID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return r.DeleteCartTx(tx, cartID)
	})
}

// DeleteCartTx 在事务内删除购物车及其条目，供结算流程使用
func (r *cartRepository) DeleteCartTx(tx *gorm.DB, cartID string) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", cartID).Delete(&model.Cart{}).Error
}
