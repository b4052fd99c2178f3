package model

import (
	"time"

	"flowmarket/pkg/model"
)

// 通知类型
const (
	KindOrderPaid = "order_paid"
	KindSaleMade  = "sale_made"
	KindBroadcast = "broadcast"
)

// Notification 站内通知
type Notification struct {
	model.BaseModel
	UserID string     `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind   string     `gorm:"type:varchar(30);not null" json:"kind"`
	Title  string     `gorm:"type:varchar(200);not null" json:"title"`
	Body   string     `gorm:"type:text" json:"body"`
	Read   bool       `gorm:"default:false;index" json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
