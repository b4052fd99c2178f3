package strategy

import "time"

// SessionItem 支付会话中的展示行项目
type SessionItem struct {
	Title           string
	UnitAmountCents int64
	Quantity        int64
}

// SessionRequest 创建托管支付会话所需的全部信息。
// 金额一律以最小货币单位（分）表示。
type SessionRequest struct {
	OrderID         string
	OrderNo         string
	UserID          string
	SellerID        string
	Currency        string
	SubtotalCents   int64
	FeeCents        int64
	TotalCents      int64
	SellerAccountID string
	// OrderType single / multi，与 IsMultiSeller 一起进会话元数据供对账
	OrderType     string
	IsMultiSeller bool
	Items         []SessionItem
	SuccessURL    string
	CancelURL     string
	ExpiresAt     time.Time
}

// Session 托管支付会话创建结果
type Session struct {
	ID          string
	RedirectURL string
}

// PaymentStrategy 支付渠道策略。
// 结算服务按配置顺序逐个尝试可用策略，第一个成功创建会话的胜出。
type PaymentStrategy interface {
	// Name 渠道名，同时作为订单的 provider 字段
	Name() string

	// SupportsSplit 是否支持平台分账（卖家目的账户 + 平台佣金）。
	// 不支持分账的渠道由平台收单，佣金在内部结算时扣除。
	SupportsSplit() bool

	// CreateSession 创建托管支付会话，返回会话 ID 和买家跳转地址
	CreateSession(req *SessionRequest) (*Session, error)

	// Notify 处理支付回调，返回订单号与支付是否成功
	Notify(params interface{}) (string, bool, error)
}
