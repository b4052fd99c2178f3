package mailer

import (
	"fmt"
	"strings"
)

// OrderLine 邮件展示用的订单行
type OrderLine struct {
	Title     string
	Quantity  int64
	CentTotal int64
	Currency  string
}

// BuildOrderConfirmationBody 买家支付成功确认邮件
func BuildOrderConfirmationBody(orderNo string, totalCents int64, currency string, lines []OrderLine) string {
	var rows strings.Builder
	for _, l := range lines {
		rows.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 10px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			l.Title, l.Quantity, FormatAmount(l.CentTotal, l.Currency),
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">Thanks for your purchase</h1>
	<p>Your order <strong>%s</strong> has been paid. Your workflows are now available in your library.</p>
	<table style="width: 100%%; border-collapse: collapse;">
		<thead>
			<tr>
				<th style="text-align: left; padding: 10px;">Workflow</th>
				<th style="padding: 10px;">Qty</th>
				<th style="text-align: right; padding: 10px;">Amount</th>
			</tr>
		</thead>
		<tbody>%s</tbody>
	</table>
	<p style="text-align: right; font-size: 18px;"><strong>Total: %s</strong></p>
</body>
</html>`, orderNo, rows.String(), FormatAmount(totalCents, currency))
}

// BuildSellerSaleBody 卖家售出通知邮件
func BuildSellerSaleBody(orderNo string, netCents int64, currency string, lines []OrderLine) string {
	var items strings.Builder
	for _, l := range lines {
		items.WriteString(fmt.Sprintf("<li>%s × %d</li>", l.Title, l.Quantity))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">You made a sale!</h1>
	<p>Order <strong>%s</strong> has been paid.</p>
	<ul>%s</ul>
	<p><strong>Net payout (after platform fee): %s</strong></p>
</body>
</html>`, orderNo, items.String(), FormatAmount(netCents, currency))
}

// BuildBroadcastBody 管理员广播邮件
func BuildBroadcastBody(body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	%s
	<hr style="border: none; border-top: 1px solid #eee; margin-top: 30px;">
	<p style="font-size: 12px; color: #999;">You are receiving this email because you have a flowmarket account.</p>
</body>
</html>`, body)
}

// BuildOTPBody 登录验证码邮件
func BuildOTPBody(code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<p>Your verification code:</p>
	<p style="font-size: 28px; letter-spacing: 6px;"><strong>%s</strong></p>
	<p style="color: #999;">The code expires in 5 minutes. Do not share it with anyone.</p>
</body>
</html>`, code)
}

// FormatAmount 将最小货币单位格式化为显示金额
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}
