package repository

import (
	"time"

	cartModel "flowmarket/internal/domain/cart/model"
	"flowmarket/internal/domain/order/model"
	"flowmarket/pkg/utils"

	"gorm.io/gorm"
)

// RevenueSummary 卖家营收汇总（仅统计已支付订单）
type RevenueSummary struct {
	OrderCount int64 `json:"order_count"`
	GrossCents int64 `json:"gross_cents"`
	FeeCents   int64 `json:"fee_cents"`
	NetCents   int64 `json:"net_cents"`
}

type OrderRepository interface {
	Create(order *model.Order) error
	CreateFreePaid(orders []*model.Order, cartID string) error
	GetByID(id string) (*model.Order, error)
	GetByOrderNo(orderNo string) (*model.Order, error)
	SetSession(orderID, provider, sessionID string, expiresAt *time.Time) error
	UpdateStatus(orderNo, status string, paidAt *time.Time) error
	UpdateStatusByID(id, status string) error
	HasPaidWorkflow(userID, workflowID string) (bool, error)
	CountUnpaidInGroup(groupID string) (int64, error)
	ListByUser(userID string, p *utils.Pagination) ([]model.Order, int64, error)
	ListBySeller(sellerID string, p *utils.Pagination) ([]model.Order, int64, error)
	ListAll(status string, p *utils.Pagination) ([]model.Order, int64, error)
	ListPaidItems(userID string) ([]model.OrderItem, error)
	GetPaidItem(userID, workflowID string) (*model.OrderItem, error)
	SellerRevenue(sellerID string) (*RevenueSummary, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create 创建订单及其订单项（GORM 关联写入自带事务）
func (r *orderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

// CreateFreePaid 免费结算：订单落库（已支付）与清空购物车在同一事务内完成
func (r *orderRepository) CreateFreePaid(orders []*model.Order, cartID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, order := range orders {
			if err := tx.Create(order).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&cartModel.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", cartID).Delete(&cartModel.Cart{}).Error
	})
}

func (r *orderRepository) GetByID(id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByOrderNo(orderNo string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Preload("Items").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// SetSession 记录支付会话信息（会话创建成功后回填）
func (r *orderRepository) SetSession(orderID, provider, sessionID string, expiresAt *time.Time) error {
	return r.db.Model(&model.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"provider":         provider,
		"provider_session": sessionID,
		"expires_at":       expiresAt,
	}).Error
}

func (r *orderRepository) UpdateStatus(orderNo, status string, paidAt *time.Time) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}
	return r.db.Model(&model.Order{}).Where("order_no = ?", orderNo).Updates(updates).Error
}

func (r *orderRepository) UpdateStatusByID(id, status string) error {
	return r.db.Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

// HasPaidWorkflow 用户是否已购买过该工作流（重复购买校验）
func (r *orderRepository) HasPaidWorkflow(userID, workflowID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.workflow_id = ?",
			userID, model.OrderStatusPaid, workflowID).
		Count(&count).Error
	return count > 0, err
}

// CountUnpaidInGroup 同一次结算中尚未支付的订单数，归零后才允许清空购物车
func (r *orderRepository) CountUnpaidInGroup(groupID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Order{}).
		Where("checkout_group_id = ? AND status <> ?", groupID, model.OrderStatusPaid).
		Count(&count).Error
	return count, err
}

func (r *orderRepository) ListByUser(userID string, p *utils.Pagination) ([]model.Order, int64, error) {
	return r.list(r.db.Where("user_id = ?", userID), p)
}

func (r *orderRepository) ListBySeller(sellerID string, p *utils.Pagination) ([]model.Order, int64, error) {
	return r.list(r.db.Where("seller_id = ?", sellerID), p)
}

func (r *orderRepository) ListAll(status string, p *utils.Pagination) ([]model.Order, int64, error) {
	query := r.db.Model(&model.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return r.list(query, p)
}

func (r *orderRepository) list(query *gorm.DB, p *utils.Pagination) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	if err := query.Model(&model.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := p.GetPageOffset()
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

// ListPaidItems 用户已购清单（资料库）
func (r *orderRepository) ListPaidItems(userID string) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ?", userID, model.OrderStatusPaid).
		Order("order_items.created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *orderRepository) GetPaidItem(userID, workflowID string) (*model.OrderItem, error) {
	var item model.OrderItem
	err := r.db.Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.workflow_id = ?",
			userID, model.OrderStatusPaid, workflowID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *orderRepository) SellerRevenue(sellerID string) (*RevenueSummary, error) {
	var summary RevenueSummary
	err := r.db.Model(&model.Order{}).
		Select("COUNT(*) AS order_count, COALESCE(SUM(subtotal_cents), 0) AS gross_cents, COALESCE(SUM(platform_fee_cents), 0) AS fee_cents").
		Where("seller_id = ? AND status = ?", sellerID, model.OrderStatusPaid).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	summary.NetCents = summary.GrossCents - summary.FeeCents
	return &summary, nil
}
