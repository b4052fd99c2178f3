package service

import (
	"errors"
	"os"
	"testing"
	"time"

	cartModel "flowmarket/internal/domain/cart/model"
	"flowmarket/internal/domain/order/model"
	"flowmarket/internal/domain/order/repository"
	"flowmarket/internal/domain/order/strategy"
	userModel "flowmarket/internal/domain/user/model"
	workflowModel "flowmarket/internal/domain/workflow/model"
	workflowRepository "flowmarket/internal/domain/workflow/repository"
	"flowmarket/internal/pkg/config"
	"flowmarket/pkg/logger"
	"flowmarket/pkg/metrics"
	"flowmarket/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	metrics.Init()
	config.GlobalConfig.Checkout = config.CheckoutConfig{
		FeeBasisPoints:    1500,
		SessionTTLMinutes: 30,
		SuccessURL:        "http://localhost/success",
		CancelURL:         "http://localhost/cancel",
	}
	os.Exit(m.Run())
}

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *model.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateFreePaid(orders []*model.Order, cartID string) error {
	args := m.Called(orders, cartID)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(id string) (*model.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNo(orderNo string) (*model.Order, error) {
	args := m.Called(orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) SetSession(orderID, provider, sessionID string, expiresAt *time.Time) error {
	args := m.Called(orderID, provider, sessionID, expiresAt)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatus(orderNo, status string, paidAt *time.Time) error {
	args := m.Called(orderNo, status, paidAt)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatusByID(id, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) HasPaidWorkflow(userID, workflowID string) (bool, error) {
	args := m.Called(userID, workflowID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) CountUnpaidInGroup(groupID string) (int64, error) {
	args := m.Called(groupID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(userID string, p *utils.Pagination) ([]model.Order, int64, error) {
	args := m.Called(userID, p)
	return args.Get(0).([]model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) ListBySeller(sellerID string, p *utils.Pagination) ([]model.Order, int64, error) {
	args := m.Called(sellerID, p)
	return args.Get(0).([]model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) ListAll(status string, p *utils.Pagination) ([]model.Order, int64, error) {
	args := m.Called(status, p)
	return args.Get(0).([]model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) ListPaidItems(userID string) ([]model.OrderItem, error) {
	args := m.Called(userID)
	return args.Get(0).([]model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) GetPaidItem(userID, workflowID string) (*model.OrderItem, error) {
	args := m.Called(userID, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) SellerRevenue(sellerID string) (*repository.RevenueSummary, error) {
	args := m.Called(sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RevenueSummary), args.Error(1)
}

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

// MockWorkflowRepository 只覆盖结算流程用到的方法，其余走嵌入接口（调用即 panic）
type MockWorkflowRepository struct {
	mock.Mock
	workflowRepository.WorkflowRepository
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

func (m *MockWorkflowRepository) IncrementDownloads(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockUserRepository is a mock of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *userModel.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id string) (*userModel.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*userModel.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepository) GetByPayoutAccount(accountID string) (*userModel.User, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserRepository) GetList(offset, limit int) ([]userModel.User, int64, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]userModel.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ListEmails(role int) ([]string, error) {
	args := m.Called(role)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) Update(user *userModel.User) error {
	args := m.Called(user)
	return args.Error(0)
}

// MockNotifier is a mock of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(userID, kind, title, body string) error {
	args := m.Called(userID, kind, title, body)
	return args.Error(0)
}

// fakeStrategy 可编排的支付策略
type fakeStrategy struct {
	name          string
	session       *strategy.Session
	err           error
	notifyOrderNo string
	notifySuccess bool
	requests      []*strategy.SessionRequest
}

func (f *fakeStrategy) Name() string        { return f.name }
func (f *fakeStrategy) SupportsSplit() bool { return true }

func (f *fakeStrategy) CreateSession(req *strategy.SessionRequest) (*strategy.Session, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeStrategy) Notify(params interface{}) (string, bool, error) {
	return f.notifyOrderNo, f.notifySuccess, nil
}

type checkoutFixture struct {
	orderRepo *MockOrderRepository
	cartRepo  *MockCartRepository
	wfRepo    *MockWorkflowRepository
	userRepo  *MockUserRepository
	notifier  *MockNotifier
	service   OrderService
}

// newCheckoutFixture Redis 指向不可达地址：锁失败时服务放行，由数据库唯一索引兜底
func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		orderRepo: new(MockOrderRepository),
		cartRepo:  new(MockCartRepository),
		wfRepo:    new(MockWorkflowRepository),
		userRepo:  new(MockUserRepository),
		notifier:  new(MockNotifier),
	}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	f.service = NewOrderService(
		f.orderRepo, f.cartRepo, f.wfRepo, f.userRepo, nil,
		rdb, f.notifier, nil, nil, metrics.Default,
	)
	return f
}

func testWorkflow(id, sellerID string, priceCents int64) *workflowModel.Workflow {
	wf := &workflowModel.Workflow{
		SellerID:       sellerID,
		Title:          "Workflow " + id,
		Platform:       workflowModel.PlatformN8N,
		Status:         workflowModel.StatusPublished,
		BasePriceCents: priceCents,
		Currency:       "usd",
		FileURL:        "https://oss.example.com/" + id + ".json",
	}
	wf.ID = id
	return wf
}

func testSeller(id string, ready bool) *userModel.User {
	u := &userModel.User{
		Email:           id + "@example.com",
		Role:            userModel.RoleSeller,
		Status:          userModel.StatusNormal,
		PayoutAccountID: "acct_" + id,
		PayoutOnboarded: ready,
	}
	u.ID = id
	return u
}

func testBuyer(id string) *userModel.User {
	u := &userModel.User{
		Email:  id + "@example.com",
		Role:   userModel.RoleUser,
		Status: userModel.StatusNormal,
	}
	u.ID = id
	return u
}

func testCart(cartID, userID string, workflowIDs ...string) *cartModel.Cart {
	cart := &cartModel.Cart{UserID: userID}
	cart.ID = cartID
	for _, wfID := range workflowIDs {
		item := cartModel.CartItem{CartID: cartID, WorkflowID: wfID, Quantity: 1}
		cart.Items = append(cart.Items, item)
	}
	return cart
}

func TestCheckoutValidation(t *testing.T) {
	t.Run("empty cart rejected", func(t *testing.T) {
		f := newCheckoutFixture()
		f.cartRepo.On("GetByUser", "buyer-1").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.ErrorIs(t, err, ErrCartEmpty)
	})

	t.Run("unpublished workflow rejected with its title", func(t *testing.T) {
		f := newCheckoutFixture()
		wf := testWorkflow("wf-1", "seller-1", 1000)
		wf.Status = workflowModel.StatusUnlisted

		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(wf, nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.ErrorIs(t, err, ErrWorkflowUnavailable)
		assert.Contains(t, err.Error(), wf.Title)
	})

	t.Run("seller without onboarded payout account rejected", func(t *testing.T) {
		f := newCheckoutFixture()
		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 1000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", "wf-1").Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", false), nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.ErrorIs(t, err, ErrSellerNotReady)
	})

	t.Run("already purchased workflow rejected", func(t *testing.T) {
		f := newCheckoutFixture()
		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 1000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", "wf-1").Return(true, nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.ErrorIs(t, err, ErrAlreadyOwned)
	})

	t.Run("mixed currencies rejected", func(t *testing.T) {
		f := newCheckoutFixture()
		wfEUR := testWorkflow("wf-2", "seller-1", 2000)
		wfEUR.Currency = "eur"

		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1", "wf-2"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 1000), nil)
		f.wfRepo.On("GetByID", "wf-2").Return(wfEUR, nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", mock.Anything).Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})
}

func TestCheckoutSingleSeller(t *testing.T) {
	t.Run("one pending order and one session", func(t *testing.T) {
		f := newCheckoutFixture()
		st := &fakeStrategy{
			name:    "stripe",
			session: &strategy.Session{ID: "cs_test_1", RedirectURL: "https://pay.example.com/cs_test_1"},
		}
		f.service.RegisterStrategy(st)

		var createdOrder *model.Order
		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1", "wf-2"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 10000), nil)
		f.wfRepo.On("GetByID", "wf-2").Return(testWorkflow("wf-2", "seller-1", 4900), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", mock.Anything).Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.orderRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			createdOrder = args.Get(0).(*model.Order)
			createdOrder.ID = "order-1"
		}).Return(nil)
		f.orderRepo.On("SetSession", "order-1", "stripe", "cs_test_1", mock.Anything).Return(nil)

		result, err := f.service.Checkout("buyer-1", "", "")

		assert.NoError(t, err)
		assert.Equal(t, KindSingle, result.Kind)
		assert.Len(t, result.Orders, 1)
		assert.Equal(t, int64(14900), result.Orders[0].TotalCents)
		// 15% of 14900 = 2235
		assert.Equal(t, int64(2235), result.Orders[0].FeeCents)
		assert.Equal(t, "https://pay.example.com/cs_test_1", result.Orders[0].RedirectURL)

		// 订单项固化了小计快照
		assert.Len(t, createdOrder.Items, 2)
		assert.Equal(t, int64(10000), createdOrder.Items[0].SubtotalCents)
		assert.Equal(t, int64(4900), createdOrder.Items[1].SubtotalCents)

		// 会话请求携带分账与对账信息
		assert.Len(t, st.requests, 1)
		assert.Equal(t, "acct_seller-1", st.requests[0].SellerAccountID)
		assert.Equal(t, int64(2235), st.requests[0].FeeCents)
		assert.Equal(t, "buyer-1", st.requests[0].UserID)
		assert.Equal(t, "seller-1", st.requests[0].SellerID)
		assert.Equal(t, KindSingle, st.requests[0].OrderType)
		assert.False(t, st.requests[0].IsMultiSeller)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("session persistence failure fails the order", func(t *testing.T) {
		f := newCheckoutFixture()
		f.service.RegisterStrategy(&fakeStrategy{
			name:    "stripe",
			session: &strategy.Session{ID: "cs_orphan", RedirectURL: "https://pay.example.com/cs_orphan"},
		})

		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 10000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", "wf-1").Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.orderRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			args.Get(0).(*model.Order).ID = "order-1"
		}).Return(nil)
		f.orderRepo.On("SetSession", "order-1", "stripe", "cs_orphan", mock.Anything).Return(errors.New("db down"))
		// 会话 ID 没落库的订单无法对账，不允许以 pending 存活
		f.orderRepo.On("UpdateStatusByID", "order-1", model.OrderStatusFailed).Return(nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.Error(t, err)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("session failure marks order failed", func(t *testing.T) {
		f := newCheckoutFixture()
		f.service.RegisterStrategy(&fakeStrategy{name: "stripe", err: errors.New("provider down")})

		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 10000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", "wf-1").Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.orderRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			args.Get(0).(*model.Order).ID = "order-1"
		}).Return(nil)
		f.orderRepo.On("UpdateStatusByID", "order-1", model.OrderStatusFailed).Return(nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.ErrorIs(t, err, ErrSessionFailed)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("falls back to the next provider in order", func(t *testing.T) {
		f := newCheckoutFixture()
		f.service.RegisterStrategy(&fakeStrategy{name: "stripe", err: errors.New("provider down")})
		f.service.RegisterStrategy(&fakeStrategy{
			name:    "alipay",
			session: &strategy.Session{ID: "ali-1", RedirectURL: "https://alipay.example.com/ali-1"},
		})

		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 10000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", "wf-1").Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.orderRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			args.Get(0).(*model.Order).ID = "order-1"
		}).Return(nil)
		f.orderRepo.On("SetSession", "order-1", "alipay", "ali-1", mock.Anything).Return(nil)

		result, err := f.service.Checkout("buyer-1", "", "")

		assert.NoError(t, err)
		assert.Equal(t, "alipay", result.Orders[0].Provider)
	})
}

func TestCheckoutMultiSeller(t *testing.T) {
	t.Run("one order and one session per seller", func(t *testing.T) {
		f := newCheckoutFixture()
		var sessionSeq int
		st := &fakeStrategy{name: "stripe"}
		f.service.RegisterStrategy(st)

		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1", "wf-2"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 10000), nil)
		f.wfRepo.On("GetByID", "wf-2").Return(testWorkflow("wf-2", "seller-2", 5000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", mock.Anything).Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.userRepo.On("GetByID", "seller-2").Return(testSeller("seller-2", true), nil)
		f.orderRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			sessionSeq++
			args.Get(0).(*model.Order).ID = "order-" + string(rune('0'+sessionSeq))
		}).Return(nil)
		st.session = &strategy.Session{ID: "cs_multi", RedirectURL: "https://pay.example.com/cs_multi"}
		f.orderRepo.On("SetSession", mock.Anything, "stripe", "cs_multi", mock.Anything).Return(nil)

		result, err := f.service.Checkout("buyer-1", "", "")

		assert.NoError(t, err)
		assert.Equal(t, KindMulti, result.Kind)
		assert.Len(t, result.Orders, 2)
		// 分组顺序跟随购物车条目顺序
		assert.Equal(t, "seller-1", result.Orders[0].SellerID)
		assert.Equal(t, "seller-2", result.Orders[1].SellerID)
		assert.Equal(t, int64(10000), result.Orders[0].TotalCents)
		assert.Equal(t, int64(5000), result.Orders[1].TotalCents)
		assert.Equal(t, int64(1500), result.Orders[0].FeeCents)
		assert.Equal(t, int64(750), result.Orders[1].FeeCents)

		// 对账元数据标记多卖家结算
		assert.Len(t, st.requests, 2)
		assert.Equal(t, KindMulti, st.requests[0].OrderType)
		assert.True(t, st.requests[0].IsMultiSeller)
	})

	t.Run("second session failure cancels the first order", func(t *testing.T) {
		f := newCheckoutFixture()
		st := &fakeStrategy{name: "stripe", session: &strategy.Session{ID: "cs_1", RedirectURL: "https://pay.example.com/cs_1"}}
		f.service.RegisterStrategy(st)

		var created int
		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1", "wf-2"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 10000), nil)
		f.wfRepo.On("GetByID", "wf-2").Return(testWorkflow("wf-2", "seller-2", 5000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", mock.Anything).Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.userRepo.On("GetByID", "seller-2").Return(testSeller("seller-2", true), nil)
		f.orderRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			created++
			order := args.Get(0).(*model.Order)
			order.ID = "order-" + string(rune('0'+created))
			// 第二个卖家的会话创建失败
			if created == 2 {
				st.err = errors.New("provider down")
			}
		}).Return(nil)
		f.orderRepo.On("SetSession", "order-1", "stripe", "cs_1", mock.Anything).Return(nil)
		f.orderRepo.On("UpdateStatusByID", "order-2", model.OrderStatusFailed).Return(nil)
		f.orderRepo.On("UpdateStatusByID", "order-1", model.OrderStatusCancelled).Return(nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.ErrorIs(t, err, ErrSessionFailed)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("session persistence failure on the second order cancels the first", func(t *testing.T) {
		f := newCheckoutFixture()
		st := &fakeStrategy{name: "stripe", session: &strategy.Session{ID: "cs_1", RedirectURL: "https://pay.example.com/cs_1"}}
		f.service.RegisterStrategy(st)

		var created int
		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1", "wf-2"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 10000), nil)
		f.wfRepo.On("GetByID", "wf-2").Return(testWorkflow("wf-2", "seller-2", 5000), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", mock.Anything).Return(false, nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.userRepo.On("GetByID", "seller-2").Return(testSeller("seller-2", true), nil)
		f.orderRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			created++
			args.Get(0).(*model.Order).ID = "order-" + string(rune('0'+created))
		}).Return(nil)
		f.orderRepo.On("SetSession", "order-1", "stripe", "cs_1", mock.Anything).Return(nil)
		f.orderRepo.On("SetSession", "order-2", "stripe", "cs_1", mock.Anything).Return(errors.New("db down"))
		f.orderRepo.On("UpdateStatusByID", "order-2", model.OrderStatusFailed).Return(nil)
		f.orderRepo.On("UpdateStatusByID", "order-1", model.OrderStatusCancelled).Return(nil)

		_, err := f.service.Checkout("buyer-1", "", "")

		assert.Error(t, err)
		f.orderRepo.AssertExpectations(t)
	})
}

func TestCheckoutFreeCart(t *testing.T) {
	t.Run("free workflows complete without payment", func(t *testing.T) {
		f := newCheckoutFixture()

		f.cartRepo.On("GetByUser", "buyer-1").Return(testCart("cart-1", "buyer-1", "wf-1"), nil)
		f.wfRepo.On("GetByID", "wf-1").Return(testWorkflow("wf-1", "seller-1", 0), nil)
		f.orderRepo.On("HasPaidWorkflow", "buyer-1", "wf-1").Return(false, nil)
		// 免费工作流不要求卖家收款就绪
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", false), nil)
		f.userRepo.On("GetByID", "buyer-1").Return(testBuyer("buyer-1"), nil)
		f.orderRepo.On("CreateFreePaid", mock.Anything, "cart-1").Return(nil)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		result, err := f.service.Checkout("buyer-1", "", "")

		assert.NoError(t, err)
		assert.Equal(t, KindFree, result.Kind)
		assert.Len(t, result.Orders, 1)
		assert.Equal(t, model.ProviderFree, result.Orders[0].Provider)
		assert.Zero(t, result.Orders[0].TotalCents)
		f.orderRepo.AssertExpectations(t)
	})
}

func TestHandleNotify(t *testing.T) {
	pendingOrder := func() *model.Order {
		order := &model.Order{
			OrderNo:          "20260830120000abc",
			UserID:           "buyer-1",
			SellerID:         "seller-1",
			CartID:           "cart-1",
			CheckoutGroupID:  "group-1",
			Status:           model.OrderStatusPending,
			Currency:         "usd",
			SubtotalCents:    10000,
			PlatformFeeCents: 1500,
			TotalCents:       10000,
		}
		order.ID = "order-1"
		return order
	}

	t.Run("successful notification marks paid and clears cart", func(t *testing.T) {
		f := newCheckoutFixture()
		f.service.RegisterStrategy(&fakeStrategy{name: "alipay", notifyOrderNo: "20260830120000abc", notifySuccess: true})

		f.orderRepo.On("GetByOrderNo", "20260830120000abc").Return(pendingOrder(), nil)
		f.orderRepo.On("UpdateStatus", "20260830120000abc", model.OrderStatusPaid, mock.Anything).Return(nil)
		f.orderRepo.On("CountUnpaidInGroup", "group-1").Return(int64(0), nil)
		f.cartRepo.On("DeleteCart", "cart-1").Return(nil)
		f.userRepo.On("GetByID", "buyer-1").Return(testBuyer("buyer-1"), nil)
		f.userRepo.On("GetByID", "seller-1").Return(testSeller("seller-1", true), nil)
		f.notifier.On("Notify", "buyer-1", "order_paid", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("Notify", "seller-1", "sale_made", mock.Anything, mock.Anything).Return(nil)

		err := f.service.HandleNotify("alipay", nil)

		assert.NoError(t, err)
		f.orderRepo.AssertExpectations(t)
		f.cartRepo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("cart survives until every order in the group is paid", func(t *testing.T) {
		f := newCheckoutFixture()
		f.service.RegisterStrategy(&fakeStrategy{name: "alipay", notifyOrderNo: "20260830120000abc", notifySuccess: true})

		f.orderRepo.On("GetByOrderNo", "20260830120000abc").Return(pendingOrder(), nil)
		f.orderRepo.On("UpdateStatus", "20260830120000abc", model.OrderStatusPaid, mock.Anything).Return(nil)
		f.orderRepo.On("CountUnpaidInGroup", "group-1").Return(int64(1), nil)
		f.userRepo.On("GetByID", mock.Anything).Return(testBuyer("buyer-1"), nil)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := f.service.HandleNotify("alipay", nil)

		assert.NoError(t, err)
		f.cartRepo.AssertNotCalled(t, "DeleteCart", mock.Anything)
	})

	t.Run("replayed notification is idempotent", func(t *testing.T) {
		f := newCheckoutFixture()
		f.service.RegisterStrategy(&fakeStrategy{name: "alipay", notifyOrderNo: "20260830120000abc", notifySuccess: true})

		paid := pendingOrder()
		paid.Status = model.OrderStatusPaid
		f.orderRepo.On("GetByOrderNo", "20260830120000abc").Return(paid, nil)

		err := f.service.HandleNotify("alipay", nil)

		assert.NoError(t, err)
		f.orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed notification only downgrades pending orders", func(t *testing.T) {
		f := newCheckoutFixture()
		f.service.RegisterStrategy(&fakeStrategy{name: "alipay", notifyOrderNo: "20260830120000abc", notifySuccess: false})

		f.orderRepo.On("GetByOrderNo", "20260830120000abc").Return(pendingOrder(), nil)
		f.orderRepo.On("UpdateStatus", "20260830120000abc", model.OrderStatusFailed, (*time.Time)(nil)).Return(nil)

		err := f.service.HandleNotify("alipay", nil)

		assert.NoError(t, err)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("unknown channel rejected", func(t *testing.T) {
		f := newCheckoutFixture()
		err := f.service.HandleNotify("paypal", nil)
		assert.ErrorIs(t, err, ErrUnknownChannel)
	})
}
