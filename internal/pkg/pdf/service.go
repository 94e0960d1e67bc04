// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/shopspring/decimal"

	"github.com/bella-notte/ordering-backend/internal/config"
	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
)

// Service renders order receipts
type Service struct {
	restaurant string
	pageSize   string
	tmpl       *template.Template
}

// NewService creates a new PDF service
func NewService(cfg config.PDFConfig, restaurant string) *Service {
	if cfg.WkhtmltopdfPath != "" {
		wkhtmltopdf.SetPath(cfg.WkhtmltopdfPath)
	}
	funcs := template.FuncMap{"money": pricing.Format}
	return &Service{
		restaurant: restaurant,
		pageSize:   cfg.PageSize,
		tmpl:       template.Must(template.New("receipt").Funcs(funcs).Parse(receiptTemplate)),
	}
}

// ReceiptData represents the data passed to the receipt template
type ReceiptData struct {
	Restaurant string
	Order      *order.Order
	Date       string
	Lines      []ReceiptLine
}

// ReceiptLine is an order item with its line total
type ReceiptLine struct {
	order.OrderItem
	Total string
}

// GenerateReceipt renders o as a PDF document
func (s *Service) GenerateReceipt(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}
	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	if s.pageSize != "" {
		pdfg.PageSize.Set(s.pageSize)
	}

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(8)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// RenderHTML renders the receipt markup
func (s *Service) RenderHTML(o *order.Order) (string, error) {
	data := ReceiptData{
		Restaurant: s.restaurant,
		Order:      o,
		Date:       o.CreatedAt.Format("02 Jan 2006, 15:04"),
	}
	for _, item := range o.Items {
		data.Lines = append(data.Lines, ReceiptLine{
			OrderItem: item,
			Total:     pricing.Format(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.Order.ID}}</title>
    <style>
        body { font-family: Georgia, serif; margin: 0; padding: 16px; color: #222; }
        h1 { color: #8b1e1e; margin-bottom: 4px; }
        table { width: 100%; border-collapse: collapse; margin-top: 16px; }
        td, th { padding: 6px 0; border-bottom: 1px solid #eee; }
        .amount { text-align: right; }
        .total td { font-weight: bold; border-bottom: none; }
        small { color: #666; }
    </style>
</head>
<body>
    <h1>{{.Restaurant}}</h1>
    <div>Order <strong>{{.Order.ID}}</strong></div>
    <div>{{.Date}}</div>
    <div>{{.Order.DeliveryType}} &middot; {{.Order.PaymentMethod}} &middot; {{.Order.Status}}</div>
    {{with .Order.Name}}<div>{{.}}</div>{{end}}
    {{if .Order.AddressLine}}<div>{{.Order.AddressLine}}, {{.Order.City}} {{.Order.Pincode}}</div>{{end}}
    {{with .Order.CardMasked}}<div>Card {{.}}</div>{{end}}
    <table>
        <tr><th align="left">Item</th><th>Qty</th><th class="amount">Price</th><th class="amount">Total</th></tr>
        {{range .Lines}}
        <tr>
            <td>{{.Name}}{{if .Customization}}<br><small>{{.Customization}}</small>{{end}}</td>
            <td align="center">{{.Quantity}}</td>
            <td class="amount">&#8377;{{money .Price}}</td>
            <td class="amount">&#8377;{{.Total}}</td>
        </tr>
        {{end}}
        <tr><td colspan="3">Subtotal</td><td class="amount">&#8377;{{money .Order.Subtotal}}</td></tr>
        <tr><td colspan="3">Tax</td><td class="amount">&#8377;{{money .Order.Tax}}</td></tr>
        <tr><td colspan="3">Delivery</td><td class="amount">&#8377;{{money .Order.DeliveryFee}}</td></tr>
        <tr class="total"><td colspan="3">Total</td><td class="amount">&#8377;{{money .Order.Total}}</td></tr>
    </table>
</body>
</html>`
