// internal/pkg/email/templates.go
package email

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Georgia, serif; margin: 0; padding: 20px; background-color: #faf6f0;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 24px; border-radius: 8px;">
        <h1 style="color: #8b1e1e;">{{.SiteName}}</h1>
        {{template "content" .}}
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
    </div>
</body>
</html>{{end}}`

var contentTemplates = map[EmailType]string{
	EmailTypeOrderConfirmation: `{{define "content"}}
        <p>Grazie {{if .UserName}}{{.UserName}}{{else}}for your order{{end}}!</p>
        <p>Order <strong>{{.OrderID}}</strong> placed on {{.OrderDate}} for {{.DeliveryType}}, paid by {{.PaymentMethod}}.</p>
        {{if .LocalQueue}}<p>We received your order and will confirm it shortly.</p>{{end}}
        <table style="width: 100%; border-collapse: collapse;">
            {{range .Items}}
            <tr>
                <td>{{.Quantity}} &times; {{.Name}}{{if .Customization}}<br><small>{{.Customization}}</small>{{end}}</td>
                <td style="text-align: right;">&#8377;{{.Total}}</td>
            </tr>
            {{end}}
            <tr><td>Subtotal</td><td style="text-align: right;">&#8377;{{.Subtotal}}</td></tr>
            <tr><td>Tax</td><td style="text-align: right;">&#8377;{{.Tax}}</td></tr>
            <tr><td>Delivery</td><td style="text-align: right;">&#8377;{{.DeliveryFee}}</td></tr>
            <tr><td><strong>Total</strong></td><td style="text-align: right;"><strong>&#8377;{{.Total}}</strong></td></tr>
        </table>
        <p><a href="{{.OrderURL}}">View your order</a></p>
{{end}}`,
	EmailTypeEmailVerification: `{{define "content"}}
        <p>Hello {{.UserName}},</p>
        <p>Please confirm your email address. The link is valid for {{.ExpiryTime}}.</p>
        <p><a href="{{.VerificationURL}}">Verify my email</a></p>
{{end}}`,
	EmailTypeReservationReceived: `{{define "content"}}
        <p>Hello {{.UserName}},</p>
        <p>We received your request for a table for {{.Guests}} on {{.Date}} at {{.Time}}.</p>
        <p>Reference: <strong>{{.ReservationID}}</strong>. We will call you to confirm.</p>
{{end}}`,
}
