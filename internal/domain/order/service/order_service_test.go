package service

import (
	"testing"

	"flowmarket/internal/domain/order/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func orderWithStatus(id, status string) *model.Order {
	order := &model.Order{
		OrderNo:          "20260830120000abc",
		UserID:           "buyer-1",
		SellerID:         "seller-1",
		Status:           status,
		Currency:         "usd",
		SubtotalCents:    10000,
		PlatformFeeCents: 1500,
		TotalCents:       10000,
	}
	order.ID = id
	return order
}

func TestAdminOverrideStatus(t *testing.T) {
	t.Run("pending order can be cancelled", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "order-1").Return(orderWithStatus("order-1", model.OrderStatusPending), nil)
		f.orderRepo.On("UpdateStatusByID", "order-1", model.OrderStatusCancelled).Return(nil)

		err := f.service.AdminOverrideStatus("order-1", model.OrderStatusCancelled)

		assert.NoError(t, err)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("pending order can be failed", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "order-1").Return(orderWithStatus("order-1", model.OrderStatusPending), nil)
		f.orderRepo.On("UpdateStatusByID", "order-1", model.OrderStatusFailed).Return(nil)

		err := f.service.AdminOverrideStatus("order-1", model.OrderStatusFailed)

		assert.NoError(t, err)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("paid order can be refunded", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "order-1").Return(orderWithStatus("order-1", model.OrderStatusPaid), nil)
		f.orderRepo.On("UpdateStatusByID", "order-1", model.OrderStatusRefunded).Return(nil)

		err := f.service.AdminOverrideStatus("order-1", model.OrderStatusRefunded)

		assert.NoError(t, err)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("paid order cannot go back to pending", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "order-1").Return(orderWithStatus("order-1", model.OrderStatusPaid), nil)

		err := f.service.AdminOverrideStatus("order-1", model.OrderStatusPending)

		assert.ErrorIs(t, err, ErrInvalidStatusChange)
		f.orderRepo.AssertNotCalled(t, "UpdateStatusByID", mock.Anything, mock.Anything)
	})

	t.Run("failed order cannot be forced to paid", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "order-2").Return(orderWithStatus("order-2", model.OrderStatusFailed), nil)

		err := f.service.AdminOverrideStatus("order-2", model.OrderStatusPaid)

		assert.ErrorIs(t, err, ErrInvalidStatusChange)
		f.orderRepo.AssertNotCalled(t, "UpdateStatusByID", mock.Anything, mock.Anything)
	})

	t.Run("refunded order is terminal", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "order-1").Return(orderWithStatus("order-1", model.OrderStatusRefunded), nil)

		err := f.service.AdminOverrideStatus("order-1", model.OrderStatusPaid)

		assert.ErrorIs(t, err, ErrInvalidStatusChange)
		f.orderRepo.AssertNotCalled(t, "UpdateStatusByID", mock.Anything, mock.Anything)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "order-1").Return(orderWithStatus("order-1", model.OrderStatusPaid), nil)

		err := f.service.AdminOverrideStatus("order-1", model.OrderStatusPaid)

		assert.NoError(t, err)
		f.orderRepo.AssertNotCalled(t, "UpdateStatusByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newCheckoutFixture()
		f.orderRepo.On("GetByID", "missing").Return(nil, gorm.ErrRecordNotFound)

		err := f.service.AdminOverrideStatus("missing", model.OrderStatusCancelled)

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
