package strategy

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"flowmarket/internal/pkg/config"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeWebhookInput Stripe 回调的原始报文与签名头
type StripeWebhookInput struct {
	Payload   []byte
	Signature string
}

// StripeStrategy 基于 Stripe Checkout 的托管支付，支持分账：
// 资金直接进入卖家 Connect 账户，平台佣金通过 application_fee_amount 扣取。
type StripeStrategy struct {
	api    *client.API
	config config.StripeConfig
}

func NewStripeStrategy() (*StripeStrategy, error) {
	cfg := config.GlobalConfig.Stripe
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe config missing")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeStrategy{api: api, config: cfg}, nil
}

func (s *StripeStrategy) Name() string {
	return "stripe"
}

func (s *StripeStrategy) SupportsSplit() bool {
	return true
}

func (s *StripeStrategy) CreateSession(req *SessionRequest) (*Session, error) {
	if req.SellerAccountID == "" {
		return nil, errors.New("seller has no payout account")
	}

	// 1. 组装展示行项目
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(item.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Title),
				},
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	// 2. 分账参数：目的账户收款，平台扣佣金
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		ExpiresAt:  stripe.Int64(req.ExpiresAt.Unix()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(req.FeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.SellerAccountID),
			},
		},
	}
	// 3. 回调对账所需的全部元数据
	params.AddMetadata("order_no", req.OrderNo)
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("seller_id", req.SellerID)
	params.AddMetadata("seller_account_id", req.SellerAccountID)
	params.AddMetadata("order_type", req.OrderType)
	params.AddMetadata("is_multi_seller", strconv.FormatBool(req.IsMultiSeller))

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}

	return &Session{ID: sess.ID, RedirectURL: sess.URL}, nil
}

// ParseEvent 验签并解析回调事件，结算服务据此分发 checkout / account 事件
func (s *StripeStrategy) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
}

func (s *StripeStrategy) Notify(params interface{}) (string, bool, error) {
	input, ok := params.(*StripeWebhookInput)
	if !ok {
		return "", false, errors.New("invalid params type, expected *StripeWebhookInput")
	}

	event, err := s.ParseEvent(input.Payload, input.Signature)
	if err != nil {
		return "", false, err
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", false, err
	}

	orderNo := sess.Metadata["order_no"]
	switch event.Type {
	case "checkout.session.completed":
		return orderNo, sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
	case "checkout.session.expired":
		return orderNo, false, nil
	default:
		return "", false, errors.New("unhandled event type: " + string(event.Type))
	}
}

var _ PaymentStrategy = (*StripeStrategy)(nil)
