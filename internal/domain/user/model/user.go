package model

import (
	"time"

	baseModel "flowmarket/pkg/model"
)

// User 用户模型，买家/卖家/管理员共用一张表
type User struct {
	baseModel.BaseModel
	Email        string     `gorm:"unique;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Nickname     string     `json:"nickname"`
	AvatarURL    string     `json:"avatarUrl"`
	Role         int        `gorm:"default:1" json:"role"`
	Status       int        `gorm:"default:1" json:"status"`
	BannedUntil  *time.Time `json:"bannedUntil,omitempty"`

	// 卖家字段
	SellerName      string `json:"sellerName,omitempty"`
	PayoutAccountID string `gorm:"index" json:"payoutAccountId,omitempty"` // 支付处理方的收款账户 ID
	PayoutOnboarded bool   `gorm:"default:false" json:"payoutOnboarded"`
}

const (
	RoleUser   = 1
	RoleSeller = 2
	RoleAdmin  = 3

	StatusNormal  = 1
	StatusBanned  = 2
	StatusDeleted = 3
)

// IsSeller 是否具备卖家身份
func (u *User) IsSeller() bool {
	return u.Role == RoleSeller || u.Role == RoleAdmin
}

// PaymentReady 收款账户是否已完成开通，只有就绪的卖家的工作流可售
func (u *User) PaymentReady() bool {
	return u.PayoutAccountID != "" && u.PayoutOnboarded
}
