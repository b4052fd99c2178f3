package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cartModel "flowmarket/internal/domain/cart/model"
	cartRepository "flowmarket/internal/domain/cart/repository"
	"flowmarket/internal/domain/order/model"
	"flowmarket/internal/domain/order/repository"
	"flowmarket/internal/domain/order/strategy"
	userModel "flowmarket/internal/domain/user/model"
	userRepository "flowmarket/internal/domain/user/repository"
	userService "flowmarket/internal/domain/user/service"
	workflowRepository "flowmarket/internal/domain/workflow/repository"
	"flowmarket/internal/pkg/config"
	"flowmarket/internal/pkg/mailer"
	"flowmarket/internal/pkg/push"
	"flowmarket/internal/pkg/worker"
	"flowmarket/pkg/logger"
	"flowmarket/pkg/metrics"
	"flowmarket/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCartEmpty           = errors.New("cart is empty")
	ErrCheckoutInProgress  = errors.New("another checkout is already in progress")
	ErrWorkflowUnavailable = errors.New("workflow is not available for purchase")
	ErrSellerNotReady      = errors.New("seller is not ready to receive payments")
	ErrAlreadyOwned        = errors.New("workflow already purchased")
	ErrSessionFailed       = errors.New("failed to create payment session")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderFinal          = errors.New("order is in a final status")
	ErrNotPurchased        = errors.New("workflow not purchased")
	ErrUnknownChannel      = errors.New("unsupported payment channel")
	ErrInvalidStatusChange = errors.New("order status change not allowed")
)

// 结算结果类型
const (
	KindFree   = "free"
	KindSingle = "single"
	KindMulti  = "multi"
)

// SellerCheckout 单个卖家订单的结算产物
type SellerCheckout struct {
	OrderID     string `json:"order_id"`
	OrderNo     string `json:"order_no"`
	SellerID    string `json:"seller_id"`
	TotalCents  int64  `json:"total_cents"`
	FeeCents    int64  `json:"fee_cents"`
	Provider    string `json:"provider,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// CheckoutResult 结算结果。free 无需支付，single 一个支付会话，
// multi 每个卖家各一个支付会话，买家按顺序逐个支付。
type CheckoutResult struct {
	Kind     string           `json:"kind"`
	Currency string           `json:"currency,omitempty"`
	Orders   []SellerCheckout `json:"orders"`
}

// Notifier 站内通知，由 notification 模块实现
type Notifier interface {
	Notify(userID, kind, title, body string) error
}

type OrderService interface {
	RegisterStrategy(st strategy.PaymentStrategy)
	Checkout(userID, successURL, cancelURL string) (*CheckoutResult, error)
	HandleNotify(channel string, params interface{}) error
	HandleStripeWebhook(payload []byte, signature string) error

	GetOrder(requesterID, orderID string) (*model.Order, error)
	ListMyOrders(userID string, p *utils.Pagination) ([]model.Order, int64, error)
	ListSales(sellerID string, p *utils.Pagination) ([]model.Order, int64, error)
	Revenue(sellerID string) (*repository.RevenueSummary, error)
	Library(userID string) ([]model.OrderItem, error)
	Download(userID, workflowID string) (string, error)

	AdminList(status string, p *utils.Pagination) ([]model.Order, int64, error)
	AdminOverrideStatus(orderID, status string) error
}

type orderService struct {
	repo       repository.OrderRepository
	cartRepo   cartRepository.CartRepository
	wfRepo     workflowRepository.WorkflowRepository
	userRepo   userRepository.UserRepository
	userSvc    userService.UserService
	rdb        *redis.Client
	strategies []strategy.PaymentStrategy
	notifier   Notifier
	mail       *worker.EmailPool
	push       push.PushService
	metrics    *metrics.Collector
}

func NewOrderService(
	repo repository.OrderRepository,
	cartRepo cartRepository.CartRepository,
	wfRepo workflowRepository.WorkflowRepository,
	userRepo userRepository.UserRepository,
	userSvc userService.UserService,
	rdb *redis.Client,
	notifier Notifier,
	mail *worker.EmailPool,
	pushSvc push.PushService,
	m *metrics.Collector,
) OrderService {
	return &orderService{
		repo:     repo,
		cartRepo: cartRepo,
		wfRepo:   wfRepo,
		userRepo: userRepo,
		userSvc:  userSvc,
		rdb:      rdb,
		notifier: notifier,
		mail:     mail,
		push:     pushSvc,
		metrics:  m,
	}
}

// RegisterStrategy 注册支付策略，注册顺序即尝试顺序
func (s *orderService) RegisterStrategy(st strategy.PaymentStrategy) {
	s.strategies = append(s.strategies, st)
}

const checkoutLockTTL = 30 * time.Second

// Checkout 购物车结算。
// 流程：加锁 -> 解析行项目并校验 -> 币种校验 -> 免费直出 / 按卖家分组建单并创建支付会话。
func (s *orderService) Checkout(userID, successURL, cancelURL string) (*CheckoutResult, error) {
	// 1. 每用户结算互斥锁，防止重复提交产生重复订单
	ctx := context.Background()
	lockKey := "checkout:lock:" + userID
	locked, err := s.rdb.SetNX(ctx, lockKey, "1", checkoutLockTTL).Result()
	if err != nil {
		// Redis 故障时放行，依赖 orders(cart_id, seller_id) 上的 pending 局部唯一索引兜底
		logger.Log.Warn("checkout lock unavailable", zap.Error(err))
	} else if !locked {
		s.metrics.CheckoutAttemptsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrCheckoutInProgress
	} else {
		defer s.rdb.Del(ctx, lockKey)
	}

	result, err := s.doCheckout(userID, successURL, cancelURL)
	if err != nil {
		outcome := "rejected"
		if errors.Is(err, ErrSessionFailed) {
			outcome = "error"
		}
		s.metrics.CheckoutAttemptsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}
	s.metrics.CheckoutAttemptsTotal.WithLabelValues(result.Kind).Inc()
	return result, nil
}

func (s *orderService) doCheckout(userID, successURL, cancelURL string) (*CheckoutResult, error) {
	// 2. 加载购物车
	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartEmpty
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	// 3. 逐项解析并校验（可售、卖家收款就绪、未重复购买）
	items, err := s.resolveLineItems(userID, cart.Items)
	if err != nil {
		return nil, err
	}

	// 4. 币种一致性
	currency, err := CheckCurrency(items)
	if err != nil {
		return nil, err
	}

	groups := GroupBySeller(items)
	groupID := uuid.New().String()
	multi := len(groups) > 1

	// 5. 全部免费：直接生成已支付订单并清空购物车，同一事务
	if SubtotalOf(items) == 0 {
		orders := make([]*model.Order, 0, len(groups))
		result := &CheckoutResult{Kind: KindFree, Currency: currency}
		now := time.Now()
		for _, g := range groups {
			order := s.buildOrder(userID, cart.ID, groupID, currency, g, multi)
			order.Status = model.OrderStatusPaid
			order.Provider = model.ProviderFree
			order.PlatformFeeCents = 0
			order.PaidAt = &now
			orders = append(orders, order)
		}
		if err := s.repo.CreateFreePaid(orders, cart.ID); err != nil {
			return nil, err
		}
		for _, order := range orders {
			s.metrics.OrdersTotal.WithLabelValues(model.OrderStatusPaid).Inc()
			result.Orders = append(result.Orders, SellerCheckout{
				OrderID:    order.ID,
				OrderNo:    order.OrderNo,
				SellerID:   order.SellerID,
				TotalCents: 0,
				Provider:   model.ProviderFree,
			})
			s.notifyPaid(order)
		}
		return result, nil
	}

	// 6. 按卖家建单并逐个创建托管支付会话
	if successURL == "" {
		successURL = config.GlobalConfig.Checkout.SuccessURL
	}
	if cancelURL == "" {
		cancelURL = config.GlobalConfig.Checkout.CancelURL
	}
	expiresAt := time.Now().Add(time.Duration(config.GlobalConfig.Checkout.SessionTTLMinutes) * time.Minute)

	result := &CheckoutResult{Kind: KindSingle, Currency: currency}
	if multi {
		result.Kind = KindMulti
	}

	var created []*model.Order
	for _, g := range groups {
		order := s.buildOrder(userID, cart.ID, groupID, currency, g, multi)
		order.ExpiresAt = &expiresAt
		if err := s.repo.Create(order); err != nil {
			s.cancelOrders(created)
			return nil, err
		}
		created = append(created, order)
		s.metrics.OrdersTotal.WithLabelValues(model.OrderStatusPending).Inc()

		sess, provider, err := s.createSession(order, g, successURL, cancelURL, expiresAt)
		if err != nil {
			// 同一次结算的订单要么都拿到会话，要么全部作废
			_ = s.repo.UpdateStatusByID(order.ID, model.OrderStatusFailed)
			s.metrics.OrdersTotal.WithLabelValues(model.OrderStatusFailed).Inc()
			s.cancelOrders(created[:len(created)-1])
			return nil, err
		}
		if err := s.repo.SetSession(order.ID, provider, sess.ID, &expiresAt); err != nil {
			// 会话已创建但没落库，订单无法对账，同样整组作废
			_ = s.repo.UpdateStatusByID(order.ID, model.OrderStatusFailed)
			s.metrics.OrdersTotal.WithLabelValues(model.OrderStatusFailed).Inc()
			s.cancelOrders(created[:len(created)-1])
			return nil, err
		}

		result.Orders = append(result.Orders, SellerCheckout{
			OrderID:     order.ID,
			OrderNo:     order.OrderNo,
			SellerID:    order.SellerID,
			TotalCents:  order.TotalCents,
			FeeCents:    order.PlatformFeeCents,
			Provider:    provider,
			SessionID:   sess.ID,
			RedirectURL: sess.RedirectURL,
		})
	}

	return result, nil
}

// resolveLineItems 把购物车项解析成定价确定的行项目。
// 价格不落库，结算时按当前基础价或所选定价方案实时解析。
func (s *orderService) resolveLineItems(userID string, cartItems []cartModel.CartItem) ([]LineItem, error) {
	items := make([]LineItem, 0, len(cartItems))
	sellers := make(map[string]*userModel.User)

	for _, ci := range cartItems {
		wf, err := s.wfRepo.GetByID(ci.WorkflowID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrWorkflowUnavailable, ci.WorkflowID)
			}
			return nil, err
		}
		if !wf.Purchasable() {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowUnavailable, wf.Title)
		}

		// 重复购买校验
		owned, err := s.repo.HasPaidWorkflow(userID, wf.ID)
		if err != nil {
			return nil, err
		}
		if owned {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyOwned, wf.Title)
		}

		// 卖家收款就绪校验（免费工作流不要求）
		seller, ok := sellers[wf.SellerID]
		if !ok {
			seller, err = s.userRepo.GetByID(wf.SellerID)
			if err != nil {
				return nil, err
			}
			sellers[wf.SellerID] = seller
		}

		price := wf.BasePriceCents
		planID := ""
		if ci.PricingPlanID != nil {
			plan, err := s.wfRepo.GetPlan(*ci.PricingPlanID)
			if err != nil {
				return nil, err
			}
			price = plan.PriceCents
			planID = plan.ID
		}

		if price > 0 && !seller.PaymentReady() {
			return nil, fmt.Errorf("%w: %s", ErrSellerNotReady, wf.Title)
		}

		items = append(items, LineItem{
			WorkflowID:      wf.ID,
			PricingPlanID:   planID,
			SellerID:        wf.SellerID,
			SellerAccountID: seller.PayoutAccountID,
			Title:           wf.Title,
			Platform:        wf.Platform,
			FileURL:         wf.FileURL,
			UnitPriceCents:  price,
			Quantity:        ci.Quantity,
			Currency:        wf.Currency,
		})
	}
	return items, nil
}

func (s *orderService) buildOrder(userID, cartID, groupID, currency string, g SellerGroup, multi bool) *model.Order {
	subtotal := g.Subtotal()
	fee := PlatformFee(subtotal, config.GlobalConfig.Checkout.FeeBasisPoints)
	order := &model.Order{
		OrderNo:          newOrderNo(),
		UserID:           userID,
		SellerID:         g.SellerID,
		CartID:           cartID,
		CheckoutGroupID:  groupID,
		Status:           model.OrderStatusPending,
		Currency:         currency,
		SubtotalCents:    subtotal,
		PlatformFeeCents: fee,
		TotalCents:       subtotal,
		IsMultiSeller:    multi,
	}
	for _, item := range g.Items {
		order.Items = append(order.Items, model.OrderItem{
			WorkflowID:     item.WorkflowID,
			PricingPlanID:  item.PricingPlanID,
			Title:          item.Title,
			Platform:       item.Platform,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			SubtotalCents:  item.Subtotal(),
			FileURL:        item.FileURL,
		})
	}
	return order
}

// createSession 按注册顺序尝试支付策略，第一个成功的胜出
func (s *orderService) createSession(order *model.Order, g SellerGroup, successURL, cancelURL string, expiresAt time.Time) (*strategy.Session, string, error) {
	if len(s.strategies) == 0 {
		return nil, "", ErrSessionFailed
	}

	orderType := KindSingle
	if order.IsMultiSeller {
		orderType = KindMulti
	}
	req := &strategy.SessionRequest{
		OrderID:         order.ID,
		OrderNo:         order.OrderNo,
		UserID:          order.UserID,
		SellerID:        order.SellerID,
		Currency:        order.Currency,
		SubtotalCents:   order.SubtotalCents,
		FeeCents:        order.PlatformFeeCents,
		TotalCents:      order.TotalCents,
		SellerAccountID: g.SellerAccountID,
		OrderType:       orderType,
		IsMultiSeller:   order.IsMultiSeller,
		SuccessURL:      successURL,
		CancelURL:       cancelURL,
		ExpiresAt:       expiresAt,
	}
	for _, item := range g.Items {
		req.Items = append(req.Items, strategy.SessionItem{
			Title:           item.Title,
			UnitAmountCents: item.UnitPriceCents,
			Quantity:        item.Quantity,
		})
	}

	var lastErr error
	for _, st := range s.strategies {
		sess, err := st.CreateSession(req)
		if err != nil {
			lastErr = err
			s.metrics.SessionFailuresTotal.WithLabelValues(st.Name()).Inc()
			logger.Log.Error("create checkout session failed",
				zap.String("provider", st.Name()),
				zap.String("order_no", order.OrderNo),
				zap.Error(err))
			continue
		}
		s.metrics.SessionsCreatedTotal.WithLabelValues(st.Name()).Inc()
		return sess, st.Name(), nil
	}
	return nil, "", fmt.Errorf("%w: %v", ErrSessionFailed, lastErr)
}

// cancelOrders 作废同一次结算中已建但未能全部拿到会话的订单
func (s *orderService) cancelOrders(orders []*model.Order) {
	for _, order := range orders {
		if err := s.repo.UpdateStatusByID(order.ID, model.OrderStatusCancelled); err != nil {
			logger.Log.Error("cancel order failed", zap.String("order_no", order.OrderNo), zap.Error(err))
			continue
		}
		s.metrics.OrdersTotal.WithLabelValues(model.OrderStatusCancelled).Inc()
	}
}

func newOrderNo() string {
	return time.Now().Format("20060102150405") + uuid.New().String()[:8]
}

// HandleNotify 支付回调统一入口 (alipay / wechat)
func (s *orderService) HandleNotify(channel string, params interface{}) error {
	var st strategy.PaymentStrategy
	for _, candidate := range s.strategies {
		if candidate.Name() == channel {
			st = candidate
			break
		}
	}
	if st == nil {
		return ErrUnknownChannel
	}

	orderNo, success, err := st.Notify(params)
	if err != nil {
		return err
	}
	if !success {
		return s.markFailed(orderNo)
	}
	return s.markPaid(orderNo)
}

// HandleStripeWebhook Stripe 回调：验签后分发结算事件与收款账户事件
func (s *orderService) HandleStripeWebhook(payload []byte, signature string) error {
	var st *strategy.StripeStrategy
	for _, candidate := range s.strategies {
		if sp, ok := candidate.(*strategy.StripeStrategy); ok {
			st = sp
			break
		}
	}
	if st == nil {
		return ErrUnknownChannel
	}

	event, err := st.ParseEvent(payload, signature)
	if err != nil {
		return err
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired":
		orderNo, success, err := st.Notify(&strategy.StripeWebhookInput{Payload: payload, Signature: signature})
		if err != nil {
			return err
		}
		if !success {
			return s.markFailed(orderNo)
		}
		return s.markPaid(orderNo)
	case "account.updated":
		return s.handleAccountUpdated(event.Data.Raw)
	default:
		// 未订阅处理的事件直接确认，避免 Stripe 反复重投
		return nil
	}
}

func (s *orderService) handleAccountUpdated(raw []byte) error {
	var acct stripe.Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return err
	}
	onboarded := acct.ChargesEnabled && acct.PayoutsEnabled && acct.DetailsSubmitted
	if err := s.userSvc.SetPayoutOnboarded(acct.ID, onboarded); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 不是本站卖家的账户事件，忽略
			return nil
		}
		return err
	}
	logger.Log.Info("seller payout account updated",
		zap.String("account_id", acct.ID),
		zap.Bool("onboarded", onboarded))
	return nil
}

// markPaid 幂等地把订单置为已支付，整组付清后清空购物车并发送通知
func (s *orderService) markPaid(orderNo string) error {
	order, err := s.repo.GetByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status == model.OrderStatusPaid {
		// 回调重放，直接确认
		return nil
	}
	if order.IsFinal() {
		return ErrOrderFinal
	}

	now := time.Now()
	if err := s.repo.UpdateStatus(orderNo, model.OrderStatusPaid, &now); err != nil {
		return err
	}
	s.metrics.OrdersTotal.WithLabelValues(model.OrderStatusPaid).Inc()
	s.metrics.PlatformFeeCents.Add(float64(order.PlatformFeeCents))

	// 多卖家结算：同组订单全部付清之前购物车保持原样，买家还要继续支付
	if order.CartID != "" {
		unpaid, err := s.repo.CountUnpaidInGroup(order.CheckoutGroupID)
		if err == nil && unpaid == 0 {
			if err := s.cartRepo.DeleteCart(order.CartID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Log.Error("clear cart after payment failed",
					zap.String("cart_id", order.CartID), zap.Error(err))
			}
		}
	}

	order.Status = model.OrderStatusPaid
	order.PaidAt = &now
	s.notifyPaid(order)
	return nil
}

// markFailed 仅 pending 订单可置为失败，终态订单忽略回调
func (s *orderService) markFailed(orderNo string) error {
	order, err := s.repo.GetByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status != model.OrderStatusPending {
		return nil
	}
	if err := s.repo.UpdateStatus(orderNo, model.OrderStatusFailed, nil); err != nil {
		return err
	}
	s.metrics.OrdersTotal.WithLabelValues(model.OrderStatusFailed).Inc()
	return nil
}

// notifyPaid 支付成功后的买卖双方通知：站内信 + 邮件 + App 推送
func (s *orderService) notifyPaid(order *model.Order) {
	lines := make([]mailer.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, mailer.OrderLine{
			Title:     item.Title,
			Quantity:  item.Quantity,
			CentTotal: item.SubtotalCents,
			Currency:  order.Currency,
		})
	}

	// 买家
	if buyer, err := s.userRepo.GetByID(order.UserID); err == nil {
		s.notifyUser(buyer, "order_paid",
			"Order paid",
			fmt.Sprintf("Order %s has been paid. Your workflows are available in your library.", order.OrderNo),
			mailer.BuildOrderConfirmationBody(order.OrderNo, order.TotalCents, order.Currency, lines))
	} else {
		logger.Log.Error("load buyer for notification failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	// 卖家
	if seller, err := s.userRepo.GetByID(order.SellerID); err == nil {
		net := order.SubtotalCents - order.PlatformFeeCents
		s.notifyUser(seller, "sale_made",
			"You made a sale",
			fmt.Sprintf("Order %s sold for %s. Net earnings: %s.",
				order.OrderNo,
				mailer.FormatAmount(order.SubtotalCents, order.Currency),
				mailer.FormatAmount(net, order.Currency)),
			mailer.BuildSellerSaleBody(order.OrderNo, net, order.Currency, lines))
	} else {
		logger.Log.Error("load seller for notification failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}
}

func (s *orderService) notifyUser(user *userModel.User, kind, title, body, emailBody string) {
	if s.notifier != nil {
		if err := s.notifier.Notify(user.ID, kind, title, body); err != nil {
			logger.Log.Error("create notification failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	if s.mail != nil && user.Email != "" {
		s.mail.Enqueue(worker.EmailTask{To: user.Email, Subject: title, Body: emailBody})
	}
	if s.push != nil {
		go func(userID string) {
			if err := s.push.PushToAccount(userID, title, body, nil); err != nil {
				logger.Log.Warn("push notification failed", zap.String("user_id", userID), zap.Error(err))
			}
		}(user.ID)
	}
}
