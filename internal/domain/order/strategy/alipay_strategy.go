package strategy

import (
	"errors"
	"fmt"
	"net/url"

	"flowmarket/internal/pkg/config"

	"github.com/smartwalle/alipay/v3"
)

// AlipayStrategy 支付宝电脑网站支付（托管收银台）。
// 不支持分账，由平台收单，卖家分成在内部结算时处理。
type AlipayStrategy struct {
	client *alipay.Client
	config config.AlipayConfig
}

func NewAlipayStrategy() (*AlipayStrategy, error) {
	cfg := config.GlobalConfig.Alipay
	if cfg.AppID == "" {
		return nil, errors.New("alipay config missing")
	}

	client, err := alipay.New(cfg.AppID, cfg.PrivateKey, cfg.IsProduction)
	if err != nil {
		return nil, err
	}

	// 加载支付宝公钥 (用于验证回调签名)
	if err = client.LoadAliPayPublicKey(cfg.PublicKey); err != nil {
		return nil, err
	}

	return &AlipayStrategy{client: client, config: cfg}, nil
}

func (s *AlipayStrategy) Name() string {
	return "alipay"
}

func (s *AlipayStrategy) SupportsSplit() bool {
	return false
}

func (s *AlipayStrategy) CreateSession(req *SessionRequest) (*Session, error) {
	subject := "FlowMarket Order " + req.OrderNo
	if len(req.Items) == 1 {
		subject = req.Items[0].Title
	}

	p := alipay.TradePagePay{}
	p.NotifyURL = s.config.NotifyURL
	p.ReturnURL = req.SuccessURL
	p.Subject = subject
	p.OutTradeNo = req.OrderNo
	p.TotalAmount = fmt.Sprintf("%.2f", float64(req.TotalCents)/100)
	p.ProductCode = "FAST_INSTANT_TRADE_PAY"
	p.TimeoutExpress = "30m"

	payURL, err := s.client.TradePagePay(p)
	if err != nil {
		return nil, err
	}

	// 支付宝没有独立的会话 ID，用商户订单号代替
	return &Session{ID: req.OrderNo, RedirectURL: payURL.String()}, nil
}

func (s *AlipayStrategy) Notify(params interface{}) (string, bool, error) {
	// params 预期是 url.Values (gin context.Request.Form)
	values, ok := params.(url.Values)
	if !ok {
		return "", false, errors.New("invalid params type, expected url.Values")
	}

	// 1. 验证签名
	noti, err := s.client.DecodeNotification(values)
	if err != nil {
		return "", false, err
	}

	// 2. TRADE_SUCCESS 或 TRADE_FINISHED 表示成功
	success := noti.TradeStatus == alipay.TradeStatusSuccess || noti.TradeStatus == alipay.TradeStatusFinished

	return noti.OutTradeNo, success, nil
}

var _ PaymentStrategy = (*AlipayStrategy)(nil)
