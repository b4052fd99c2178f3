package service

import (
	"flowmarket/internal/domain/notification/model"
	"flowmarket/internal/domain/notification/repository"
	userRepository "flowmarket/internal/domain/user/repository"
	"flowmarket/internal/pkg/mailer"
	"flowmarket/internal/pkg/push"
	"flowmarket/internal/pkg/worker"
	"flowmarket/pkg/logger"
	"flowmarket/pkg/utils"

	"go.uber.org/zap"
)

type NotificationService interface {
	// Notify 创建站内通知，order 模块在支付成功后调用
	Notify(userID, kind, title, body string) error

	List(userID string, p *utils.Pagination) ([]model.Notification, int64, error)
	UnreadCount(userID string) (int64, error)
	MarkRead(userID, id string) error
	MarkAllRead(userID string) error

	// Broadcast 广播：邮件 + App 推送 (管理员)，role 为 0 表示全员
	Broadcast(title, body string, role int) error
}

type notificationService struct {
	repo     repository.NotificationRepository
	userRepo userRepository.UserRepository
	mail     *worker.EmailPool
	push     push.PushService
}

func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo userRepository.UserRepository,
	mail *worker.EmailPool,
	pushSvc push.PushService,
) NotificationService {
	return &notificationService{
		repo:     repo,
		userRepo: userRepo,
		mail:     mail,
		push:     pushSvc,
	}
}

func (s *notificationService) Notify(userID, kind, title, body string) error {
	return s.repo.Create(&model.Notification{
		UserID: userID,
		Kind:   kind,
		Title:  title,
		Body:   body,
	})
}

func (s *notificationService) List(userID string, p *utils.Pagination) ([]model.Notification, int64, error) {
	return s.repo.ListByUser(userID, p)
}

func (s *notificationService) UnreadCount(userID string) (int64, error) {
	return s.repo.CountUnread(userID)
}

func (s *notificationService) MarkRead(userID, id string) error {
	return s.repo.MarkRead(userID, id)
}

func (s *notificationService) MarkAllRead(userID string) error {
	return s.repo.MarkAllRead(userID)
}

// Broadcast 邮件逐个入队，推送走厂商的全员通道
func (s *notificationService) Broadcast(title, body string, role int) error {
	emails, err := s.userRepo.ListEmails(role)
	if err != nil {
		return err
	}

	if s.mail != nil {
		emailBody := mailer.BuildBroadcastBody(body)
		for _, to := range emails {
			s.mail.Enqueue(worker.EmailTask{To: to, Subject: title, Body: emailBody})
		}
	}

	// 厂商推送没有角色维度，只在全员广播时走
	if s.push != nil && role == 0 {
		go func() {
			if err := s.push.PushToAll(title, body, nil); err != nil {
				logger.Log.Warn("broadcast push failed", zap.Error(err))
			}
		}()
	}

	logger.Log.Info("broadcast queued", zap.String("title", title), zap.Int("recipients", len(emails)))
	return nil
}
