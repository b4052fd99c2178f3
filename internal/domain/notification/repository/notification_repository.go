package repository

import (
	"time"

	"flowmarket/internal/domain/notification/model"
	"flowmarket/pkg/utils"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(n *model.Notification) error
	ListByUser(userID string, p *utils.Pagination) ([]model.Notification, int64, error)
	CountUnread(userID string) (int64, error)
	MarkRead(userID, id string) error
	MarkAllRead(userID string) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(n *model.Notification) error {
	return r.db.Create(n).Error
}

func (r *notificationRepository) ListByUser(userID string, p *utils.Pagination) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	query := r.db.Model(&model.Notification{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := p.GetPageOffset()
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *notificationRepository) CountUnread(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND read = false", userID).
		Count(&count).Error
	return count, err
}

// MarkRead 带 user_id 条件，用户只能改自己的通知
func (r *notificationRepository) MarkRead(userID, id string) error {
	now := time.Now()
	result := r.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"read": true, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(userID string) error {
	now := time.Now()
	return r.db.Model(&model.Notification{}).
		Where("user_id = ? AND read = false", userID).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error
}
