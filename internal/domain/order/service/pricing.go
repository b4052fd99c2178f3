package service

import (
	"errors"
)

// ErrCurrencyMismatch 购物车内存在不同币种的商品，无法在同一结算会话中支付
var ErrCurrencyMismatch = errors.New("cart contains items with mixed currencies")

// LineItem 结算行项目，由购物车项解析而来（已确定最终单价和归属卖家）
type LineItem struct {
	WorkflowID      string
	PricingPlanID   string
	SellerID        string
	SellerAccountID string
	Title           string
	Platform        string
	FileURL         string
	UnitPriceCents  int64
	Quantity        int64
	Currency        string
}

// Subtotal 行项目小计
func (l LineItem) Subtotal() int64 {
	return l.UnitPriceCents * l.Quantity
}

// SellerGroup 按卖家分组后的行项目集合，一组对应一个订单
type SellerGroup struct {
	SellerID        string
	SellerAccountID string
	Items           []LineItem
}

// Subtotal 分组小计
func (g SellerGroup) Subtotal() int64 {
	var sum int64
	for _, item := range g.Items {
		sum += item.Subtotal()
	}
	return sum
}

// CheckCurrency 校验所有行项目币种一致，返回统一币种。
// 空列表返回空字符串且不报错，由调用方先行处理空购物车。
func CheckCurrency(items []LineItem) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	currency := items[0].Currency
	for _, item := range items[1:] {
		if item.Currency != currency {
			return "", ErrCurrencyMismatch
		}
	}
	return currency, nil
}

// GroupBySeller 按卖家分组，分组顺序跟随行项目首次出现的顺序，保证结算结果可复现
func GroupBySeller(items []LineItem) []SellerGroup {
	index := make(map[string]int)
	groups := make([]SellerGroup, 0)
	for _, item := range items {
		i, ok := index[item.SellerID]
		if !ok {
			i = len(groups)
			index[item.SellerID] = i
			groups = append(groups, SellerGroup{
				SellerID:        item.SellerID,
				SellerAccountID: item.SellerAccountID,
			})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// PlatformFee 按基点计算平台佣金，四舍五入（0.5 进位）。
// 1500 基点即 15%。
func PlatformFee(subtotalCents int64, basisPoints int64) int64 {
	if subtotalCents <= 0 || basisPoints <= 0 {
		return 0
	}
	return (subtotalCents*basisPoints + 5000) / 10000
}

// SubtotalOf 全部行项目总计
func SubtotalOf(items []LineItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Subtotal()
	}
	return sum
}
