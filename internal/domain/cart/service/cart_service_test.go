package service

import (
	"testing"

	cartModel "flowmarket/internal/domain/cart/model"
	workflowModel "flowmarket/internal/domain/workflow/model"
	workflowRepo "flowmarket/internal/domain/workflow/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockCartRepository is a mock of CartRepository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetOrCreateByUser(userID string) (*cartModel.Cart, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartModel.Cart), args.Error(1)
}

func (m *MockCartRepository) GetByUser(userID string) (*cartModel.Cart, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartModel.Cart), args.Error(1)
}

func (m *MockCartRepository) AddItem(cartID, workflowID string, planID *string, quantity int64) (*cartModel.CartItem, error) {
	args := m.Called(cartID, workflowID, planID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartModel.CartItem), args.Error(1)
}

func (m *MockCartRepository) GetItem(itemID string) (*cartModel.CartItem, error) {
	args := m.Called(itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartModel.CartItem), args.Error(1)
}

func (m *MockCartRepository) UpdateItemQuantity(itemID string, quantity int64) error {
	args := m.Called(itemID, quantity)
	return args.Error(0)
}

func (m *MockCartRepository) RemoveItem(itemID string) error {
	args := m.Called(itemID)
	return args.Error(0)
}

func (m *MockCartRepository) ClearItems(cartID string) error {
	args := m.Called(cartID)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteCart(cartID string) error {
	args := m.Called(cartID)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteCartTx(tx *gorm.DB, cartID string) error {
	args := m.Called(tx, cartID)
	return args.Error(0)
}

// MockWorkflowRepository 只覆盖购物车流程用到的方法
type MockWorkflowRepository struct {
	mock.Mock
	workflowRepo.WorkflowRepository
}

func (m *MockWorkflowRepository) GetByID(id string) (*workflowModel.Workflow, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflowModel.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetPlan(id string) (*workflowModel.PricingPlan, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflowModel.PricingPlan), args.Error(1)
}

func publishedWorkflow(id, sellerID string) *workflowModel.Workflow {
	wf := &workflowModel.Workflow{
		SellerID: sellerID,
		Title:    "Invoice Sync",
		Status:   workflowModel.StatusPublished,
	}
	wf.ID = id
	return wf
}

func TestAddItem(t *testing.T) {
	t.Run("published workflow added to cart", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		wfRepo := new(MockWorkflowRepository)
		service := NewCartService(cartRepo, wfRepo)

		cart := &cartModel.Cart{UserID: "buyer-1"}
		cart.ID = "cart-1"
		item := &cartModel.CartItem{CartID: "cart-1", WorkflowID: "wf-1", Quantity: 1}

		wfRepo.On("GetByID", "wf-1").Return(publishedWorkflow("wf-1", "seller-1"), nil)
		cartRepo.On("GetOrCreateByUser", "buyer-1").Return(cart, nil)
		cartRepo.On("AddItem", "cart-1", "wf-1", (*string)(nil), int64(1)).Return(item, nil)

		result, err := service.AddItem("buyer-1", "wf-1", nil, 1)

		assert.NoError(t, err)
		assert.Equal(t, "wf-1", result.WorkflowID)
		cartRepo.AssertExpectations(t)
	})

	t.Run("draft workflow rejected", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		wfRepo := new(MockWorkflowRepository)
		service := NewCartService(cartRepo, wfRepo)

		wf := publishedWorkflow("wf-1", "seller-1")
		wf.Status = workflowModel.StatusDraft
		wfRepo.On("GetByID", "wf-1").Return(wf, nil)

		_, err := service.AddItem("buyer-1", "wf-1", nil, 1)

		assert.ErrorIs(t, err, ErrWorkflowUnavailable)
	})

	t.Run("seller cannot buy own workflow", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		wfRepo := new(MockWorkflowRepository)
		service := NewCartService(cartRepo, wfRepo)

		wfRepo.On("GetByID", "wf-1").Return(publishedWorkflow("wf-1", "seller-1"), nil)

		_, err := service.AddItem("seller-1", "wf-1", nil, 1)

		assert.ErrorIs(t, err, ErrOwnWorkflow)
	})

	t.Run("plan must belong to the workflow", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		wfRepo := new(MockWorkflowRepository)
		service := NewCartService(cartRepo, wfRepo)

		planID := "plan-1"
		plan := &workflowModel.PricingPlan{WorkflowID: "other-wf", PriceCents: 5000}
		plan.ID = planID

		wfRepo.On("GetByID", "wf-1").Return(publishedWorkflow("wf-1", "seller-1"), nil)
		wfRepo.On("GetPlan", planID).Return(plan, nil)

		_, err := service.AddItem("buyer-1", "wf-1", &planID, 1)

		assert.ErrorIs(t, err, ErrPlanMismatch)
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		service := NewCartService(new(MockCartRepository), new(MockWorkflowRepository))

		_, err := service.AddItem("buyer-1", "wf-1", nil, 0)

		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestUpdateQuantity(t *testing.T) {
	t.Run("other users cart item untouchable", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		wfRepo := new(MockWorkflowRepository)
		service := NewCartService(cartRepo, wfRepo)

		cart := &cartModel.Cart{UserID: "someone-else"}
		cart.ID = "cart-9"
		item := &cartModel.CartItem{CartID: "cart-9", WorkflowID: "wf-1", Quantity: 1}
		item.ID = "item-1"

		myCart := &cartModel.Cart{UserID: "buyer-1"}
		myCart.ID = "cart-1"
		cartRepo.On("GetItem", "item-1").Return(item, nil)
		cartRepo.On("GetByUser", "buyer-1").Return(myCart, nil)

		err := service.UpdateQuantity("buyer-1", "item-1", 2)

		assert.ErrorIs(t, err, ErrNotCartOwner)
		cartRepo.AssertNotCalled(t, "UpdateItemQuantity", mock.Anything, mock.Anything)
	})
}
