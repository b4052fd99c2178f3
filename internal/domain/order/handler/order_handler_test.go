package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flowmarket/internal/domain/order/service"
	"flowmarket/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// stubOrderService 只覆盖被测入口，其余走嵌入接口（调用即 panic）
type stubOrderService struct {
	service.OrderService
	checkoutErr error
}

func (s *stubOrderService) Checkout(userID, successURL, cancelURL string) (*service.CheckoutResult, error) {
	if s.checkoutErr != nil {
		return nil, s.checkoutErr
	}
	return &service.CheckoutResult{Kind: service.KindFree}, nil
}

func performCheckout(t *testing.T, svc service.OrderService) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := NewOrderHandler(svc)
	r.POST("/checkout/cart", h.Checkout)

	req := httptest.NewRequest(http.MethodPost, "/checkout/cart", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckoutErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		httpCode int
		bizCode  int
	}{
		{"empty cart", service.ErrCartEmpty, http.StatusBadRequest, response.ErrCartEmpty},
		{"already owned", fmt.Errorf("%w: Workflow wf-1", service.ErrAlreadyOwned), http.StatusBadRequest, response.ErrAlreadyOwned},
		{"seller not ready", service.ErrSellerNotReady, http.StatusBadRequest, response.ErrSellerNotReady},
		{"currency mismatch", service.ErrCurrencyMismatch, http.StatusBadRequest, response.ErrCurrencyMismatch},
		{"checkout in progress", service.ErrCheckoutInProgress, http.StatusConflict, response.ErrCheckoutInProgress},
		{"session failed", service.ErrSessionFailed, http.StatusBadGateway, response.ErrSessionCreateFailed},
		{"status change rejected", service.ErrInvalidStatusChange, http.StatusConflict, response.ErrOrderStatusChange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performCheckout(t, &stubOrderService{checkoutErr: tc.err})

			assert.Equal(t, tc.httpCode, w.Code)

			var resp response.Response
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.bizCode, resp.Code)
		})
	}
}
