package model

import (
	"time"

	"flowmarket/pkg/model"
)

// 订单状态
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// 支付渠道
const (
	ProviderFree   = "free"
	ProviderStripe = "stripe"
	ProviderAlipay = "alipay"
	ProviderWechat = "wechat"
)

// Order 订单，一个订单只属于一个卖家。
// 多卖家购物车结算时会按卖家拆成多个订单，用 CheckoutGroupID 关联同一次结算。
type Order struct {
	model.BaseModel
	OrderNo          string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_no"`
	UserID           string     `gorm:"type:uuid;index;not null" json:"user_id"`
	SellerID         string     `gorm:"type:uuid;index;not null" json:"seller_id"`
	CartID           string     `gorm:"type:uuid;index" json:"cart_id,omitempty"`
	CheckoutGroupID  string     `gorm:"type:uuid;index" json:"checkout_group_id,omitempty"`
	Status           string     `gorm:"type:varchar(20);index;default:'pending'" json:"status"`
	Currency         string     `gorm:"type:varchar(3);not null" json:"currency"`
	SubtotalCents    int64      `gorm:"not null" json:"subtotal_cents"`
	PlatformFeeCents int64      `gorm:"not null" json:"platform_fee_cents"`
	TotalCents       int64      `gorm:"not null" json:"total_cents"`
	Provider         string     `gorm:"type:varchar(20)" json:"provider"`
	ProviderSession  string     `gorm:"type:varchar(255);index" json:"provider_session,omitempty"`
	IsMultiSeller    bool       `gorm:"default:false" json:"is_multi_seller"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Items            []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// IsFinal 终态订单不允许再被回调或管理员以外的流程修改
func (o *Order) IsFinal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusRefunded || o.Status == OrderStatusCancelled
}

// OrderItem 订单项，下单时对工作流信息做快照，后续改价/下架不影响已成交订单
type OrderItem struct {
	model.BaseModel
	OrderID        string `gorm:"type:uuid;index;not null" json:"order_id"`
	WorkflowID     string `gorm:"type:uuid;index;not null" json:"workflow_id"`
	PricingPlanID  string `gorm:"type:uuid" json:"pricing_plan_id,omitempty"`
	Title          string `gorm:"type:varchar(200);not null" json:"title"`
	Platform       string `gorm:"type:varchar(20);not null" json:"platform"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
	Quantity       int64  `gorm:"not null;default:1" json:"quantity"`
	SubtotalCents  int64  `gorm:"not null" json:"subtotal_cents"`
	FileURL        string `gorm:"type:varchar(500)" json:"-"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
