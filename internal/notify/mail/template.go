package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// Message — готовое к отправке письмо.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type templateLine struct {
	Name      string
	Price     string
	Quantity  int
	LineTotal string
}

type templateData struct {
	OrderID      string
	CustomerName string
	Lines        []templateLine
	GrandTotal   string
	OrderURL     string
	SupportEmail string
}

const textBody = `Thank you for your order, {{.CustomerName}}!

We are getting your order ready. You will receive a shipping confirmation email soon.

Order ID: {{.OrderID}}

Order summary:
{{range .Lines}}  {{.Name}}  ${{.Price}} x {{.Quantity}} = ${{.LineTotal}}
{{end}}
Grand total: ${{.GrandTotal}}
{{if .OrderURL}}
View your order: {{.OrderURL}}
{{end}}
Need help? Contact {{.SupportEmail}}
`

const htmlBody = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="background-color:#f1f1f1;font-family:Manrope,Arial,sans-serif;">
<div style="max-width:600px;margin:0 auto;background:#ffffff;">
  <div style="background:#101010;padding:32px;text-align:center;"><h1 style="color:#ffffff;margin:0;">audiophile</h1></div>
  <div style="padding:40px 32px;">
    <h2>Thank You for Your Order, {{.CustomerName}}!</h2>
    <p>We are getting your order ready. You will receive a shipping confirmation email soon.</p>
    <div style="background:#f1f1f1;padding:16px;border-radius:8px;">
      <p style="margin:0;font-size:12px;">Order ID</p>
      <p style="margin:0;font-weight:bold;">{{.OrderID}}</p>
    </div>
    <h3>Order Summary</h3>
    {{range .Lines}}<div style="display:flex;justify-content:space-between;border-bottom:1px solid #f1f1f1;padding:8px 0;">
      <div><p style="margin:0;font-weight:bold;">{{.Name}}</p><p style="margin:0;opacity:.5;">${{.Price}} &times; {{.Quantity}}</p></div>
      <p style="margin:0;font-weight:bold;">${{.LineTotal}}</p>
    </div>{{end}}
    <table style="width:100%;margin-top:24px;"><tr>
      <td style="font-weight:bold;">Grand Total</td>
      <td style="text-align:right;font-weight:bold;color:#d87d4a;">${{.GrandTotal}}</td>
    </tr></table>
    {{if .OrderURL}}<div style="text-align:center;margin-top:32px;">
      <a href="{{.OrderURL}}" style="background:#d87d4a;color:#ffffff;padding:15px 30px;text-decoration:none;">View Your Order</a>
    </div>{{end}}
    <p style="margin-top:32px;">Need Help? Contact our support team at {{.SupportEmail}}</p>
  </div>
</div>
</body>
</html>
`

var (
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
)

// Render формирует письмо-подтверждение. appURL может быть пустым, тогда ссылки на заказ нет.
func Render(c domain.Confirmation, appURL, supportEmail string) (Message, error) {
	data := templateData{
		OrderID:      c.OrderID,
		CustomerName: c.CustomerName,
		GrandTotal:   formatAmount(c.GrandTotal.Round(0).String()),
		SupportEmail: supportEmail,
	}
	for _, item := range c.Items {
		data.Lines = append(data.Lines, templateLine{
			Name:      item.Name,
			Price:     formatAmount(item.Price.String()),
			Quantity:  item.Quantity,
			LineTotal: formatAmount(item.LineTotal().String()),
		})
	}
	if appURL != "" {
		data.OrderURL = strings.TrimRight(appURL, "/") + "/order-confirmation?orderId=" + url.QueryEscape(c.OrderID)
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}

	return Message{
		Subject: "Order Confirmation - " + c.OrderID,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// formatAmount группирует разряды целой части запятыми: 5396 -> 5,396.
func formatAmount(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "." + frac
	}
	return out
}
