package service

import (
	"errors"
	"fmt"

	"flowmarket/internal/domain/order/model"
	"flowmarket/internal/domain/order/repository"
	"flowmarket/pkg/utils"

	"gorm.io/gorm"
)

// GetOrder 买家或卖家查看自己相关的订单，其他人一律按不存在处理
func (s *orderService) GetOrder(requesterID, orderID string) (*model.Order, error) {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != requesterID && order.SellerID != requesterID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListMyOrders(userID string, p *utils.Pagination) ([]model.Order, int64, error) {
	return s.repo.ListByUser(userID, p)
}

func (s *orderService) ListSales(sellerID string, p *utils.Pagination) ([]model.Order, int64, error) {
	return s.repo.ListBySeller(sellerID, p)
}

func (s *orderService) Revenue(sellerID string) (*repository.RevenueSummary, error) {
	return s.repo.SellerRevenue(sellerID)
}

// Library 已购工作流清单
func (s *orderService) Library(userID string) ([]model.OrderItem, error) {
	return s.repo.ListPaidItems(userID)
}

// Download 返回已购工作流的文件地址并计数。
// 优先返回当前版本的文件，已下架等拿不到时退回下单时的快照。
func (s *orderService) Download(userID, workflowID string) (string, error) {
	item, err := s.repo.GetPaidItem(userID, workflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotPurchased
		}
		return "", err
	}

	fileURL := item.FileURL
	if wf, err := s.wfRepo.GetByID(workflowID); err == nil && wf.FileURL != "" {
		fileURL = wf.FileURL
	}
	if err := s.wfRepo.IncrementDownloads(workflowID); err != nil {
		return "", err
	}
	return fileURL, nil
}

func (s *orderService) AdminList(status string, p *utils.Pagination) ([]model.Order, int64, error) {
	return s.repo.ListAll(status, p)
}

// adminTransitions 管理员改单只能沿订单生命周期走：
// 待支付订单可以作废，已支付订单线下退款后改为已退款，其余一律拒绝。
var adminTransitions = map[string]map[string]bool{
	model.OrderStatusPending: {
		model.OrderStatusCancelled: true,
		model.OrderStatusFailed:    true,
	},
	model.OrderStatusPaid: {
		model.OrderStatusRefunded: true,
	},
}

// AdminOverrideStatus 管理员改单（争议处理、线下退款后的状态修正）
func (s *orderService) AdminOverrideStatus(orderID, status string) error {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status == status {
		return nil
	}
	if !adminTransitions[order.Status][status] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, order.Status, status)
	}
	if err := s.repo.UpdateStatusByID(orderID, status); err != nil {
		return err
	}
	s.metrics.OrdersTotal.WithLabelValues(status).Inc()
	return nil
}
