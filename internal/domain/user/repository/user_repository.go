package repository

import (
	"flowmarket/internal/domain/user/model"

	"gorm.io/gorm"
)

// UserRepository 接口定义
type UserRepository interface {
	Create(user *model.User) error
	GetByID(id string) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	GetByPayoutAccount(accountID string) (*model.User, error)
	GetList(offset, limit int) ([]model.User, int64, error)
	ListEmails(role int) ([]string, error)
	Update(user *model.User) error
}

// userRepository 实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的仓库实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(id string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
func (r *userRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByPayoutAccount 根据收款账户 ID 获取卖家，供支付回调使用
func (r *userRepository) GetByPayoutAccount(accountID string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("payout_account_id = ?", accountID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetList 获取用户列表（分页）
func (r *userRepository) GetList(offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	if err := r.db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListEmails 列出正常状态用户的邮箱，role 为 0 表示不过滤角色
func (r *userRepository) ListEmails(role int) ([]string, error) {
	var emails []string
	q := r.db.Model(&model.User{}).Where("status = ?", model.StatusNormal)
	if role != 0 {
		q = q.Where("role = ?", role)
	}
	if err := q.Pluck("email", &emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

// Update 更新用户
func (r *userRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}
