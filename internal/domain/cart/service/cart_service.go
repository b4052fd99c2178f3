package service

import (
	"errors"
	"fmt"

	cartModel "flowmarket/internal/domain/cart/model"
	"flowmarket/internal/domain/cart/repository"
	workflowModel "flowmarket/internal/domain/workflow/model"
	workflowRepo "flowmarket/internal/domain/workflow/repository"
)

var (
	ErrWorkflowUnavailable = errors.New("workflow is not available for purchase")
	ErrPlanMismatch        = errors.New("pricing plan does not belong to this workflow")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrNotCartOwner        = errors.New("cart item does not belong to this user")
	ErrOwnWorkflow         = errors.New("sellers cannot buy their own workflow")
)

// CartService 购物车服务接口
type CartService interface {
	GetCart(userID string) (*cartModel.Cart, error)
	AddItem(userID, workflowID string, planID *string, quantity int64) (*cartModel.CartItem, error)
	UpdateQuantity(userID, itemID string, quantity int64) error
	RemoveItem(userID, itemID string) error
	Clear(userID string) error
}

type cartService struct {
	repo      repository.CartRepository
	workflows workflowRepo.WorkflowRepository
}

func NewCartService(repo repository.CartRepository, workflows workflowRepo.WorkflowRepository) CartService {
	return &cartService{repo: repo, workflows: workflows}
}

func (s *cartService) GetCart(userID string) (*cartModel.Cart, error) {
	return s.repo.GetOrCreateByUser(userID)
}

// AddItem 加入购物车
// 加入时校验工作流可售；卖家收款状态在结算时再校验
func (s *cartService) AddItem(userID, workflowID string, planID *string, quantity int64) (*cartModel.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	workflow, err := s.workflows.GetByID(workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.Status != workflowModel.StatusPublished {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowUnavailable, workflow.Title)
	}
	if workflow.SellerID == userID {
		return nil, ErrOwnWorkflow
	}

	// 定价方案必须属于该工作流
	if planID != nil {
		plan, err := s.workflows.GetPlan(*planID)
		if err != nil {
			return nil, err
		}
		if plan.WorkflowID != workflowID {
			return nil, ErrPlanMismatch
		}
	}

	cart, err := s.repo.GetOrCreateByUser(userID)
	if err != nil {
		return nil, err
	}

	return s.repo.AddItem(cart.ID, workflowID, planID, quantity)
}

func (s *cartService) UpdateQuantity(userID, itemID string, quantity int64) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if err := s.checkItemOwner(userID, itemID); err != nil {
		return err
	}
	return s.repo.UpdateItemQuantity(itemID, quantity)
}

func (s *cartService) RemoveItem(userID, itemID string) error {
	if err := s.checkItemOwner(userID, itemID); err != nil {
		return err
	}
	return s.repo.RemoveItem(itemID)
}

func (s *cartService) Clear(userID string) error {
	cart, err := s.repo.GetByUser(userID)
	if err != nil {
		return err
	}
	return s.repo.ClearItems(cart.ID)
}

func (s *cartService) checkItemOwner(userID, itemID string) error {
	item, err := s.repo.GetItem(itemID)
	if err != nil {
		return err
	}
	cart, err := s.repo.GetByUser(userID)
	if err != nil {
		return err
	}
	if item.CartID != cart.ID {
		return ErrNotCartOwner
	}
	return nil
}
