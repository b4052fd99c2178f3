package strategy

import (
	"context"
	"errors"
	"net/http"

	"flowmarket/internal/pkg/config"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/native"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

// WechatStrategy 微信 Native 支付（扫码）。
// 与支付宝一样由平台收单，不支持分账。
type WechatStrategy struct {
	client  *core.Client
	config  config.WechatPayConfig
	handler *notify.Handler
}

func NewWechatStrategy() (*WechatStrategy, error) {
	cfg := config.GlobalConfig.Wechat
	if cfg.MchID == "" {
		return nil, errors.New("wechat pay config missing")
	}

	// 1. 加载商户私钥
	mchPrivateKey, err := utils.LoadPrivateKey(cfg.MchPrivateKey)
	if err != nil {
		return nil, err
	}

	// 2. 初始化 Client
	ctx := context.Background()
	opts := []core.ClientOption{
		option.WithWechatPayAutoAuthCipher(cfg.MchID, cfg.MchCertificateSerial, mchPrivateKey, cfg.APIv3Key),
	}

	client, err := core.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// 3. 初始化证书管理器与 Notify Handler (用于验签)
	certVisitor := downloader.MgrInstance().GetCertificateVisitor(cfg.MchID)
	handler := notify.NewNotifyHandler(cfg.APIv3Key, verifiers.NewSHA256WithRSAVerifier(certVisitor))

	return &WechatStrategy{
		client:  client,
		config:  cfg,
		handler: handler,
	}, nil
}

func (s *WechatStrategy) Name() string {
	return "wechat"
}

func (s *WechatStrategy) SupportsSplit() bool {
	return false
}

func (s *WechatStrategy) CreateSession(req *SessionRequest) (*Session, error) {
	description := "FlowMarket Order " + req.OrderNo
	if len(req.Items) == 1 {
		description = req.Items[0].Title
	}

	prepay := native.PrepayRequest{
		Appid:       core.String(s.config.AppID),
		Mchid:       core.String(s.config.MchID),
		Description: core.String(description),
		OutTradeNo:  core.String(req.OrderNo),
		NotifyUrl:   core.String(s.config.NotifyURL),
		TimeExpire:  core.Time(req.ExpiresAt),
		Amount: &native.Amount{
			Total: core.Int64(req.TotalCents),
		},
	}

	svc := native.NativeApiService{Client: s.client}
	resp, _, err := svc.Prepay(context.Background(), prepay)
	if err != nil {
		return nil, err
	}

	// Native 支付返回二维码链接，前端据此渲染收款码
	return &Session{ID: req.OrderNo, RedirectURL: *resp.CodeUrl}, nil
}

func (s *WechatStrategy) Notify(params interface{}) (string, bool, error) {
	req, ok := params.(*http.Request)
	if !ok {
		return "", false, errors.New("invalid params type, expected *http.Request")
	}

	transaction := new(payments.Transaction)
	if _, err := s.handler.ParseNotifyRequest(context.Background(), req, transaction); err != nil {
		return "", false, err
	}

	success := *transaction.TradeState == "SUCCESS"
	return *transaction.OutTradeNo, success, nil
}

var _ PaymentStrategy = (*WechatStrategy)(nil)
