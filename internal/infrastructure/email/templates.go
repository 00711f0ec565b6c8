package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

type Template string

const (
	TemplateBookingConfirmation Template = "booking_confirmation"
	TemplatePaymentInstructions Template = "payment_instructions"
	TemplatePaymentReceived     Template = "payment_received"
	TemplateTest                Template = "test_email"
)

type templateDef struct {
	subject *texttemplate.Template
	body    *template.Template
}

const layoutHead = `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#1f2933;max-width:560px;margin:0 auto">`
const layoutFoot = `<p style="color:#7b8794;font-size:12px">This message was sent automatically, please do not reply.</p></body></html>`

var templates = map[Template]templateDef{
	TemplateBookingConfirmation: mustTemplate(
		"Your booking {{.BookingID}} is confirmed",
		`<h1>Booking confirmed</h1>
<p>Thank you{{with .GuestName}}, {{.}}{{end}}! We received your payment of <strong>{{.Amount}} {{.Currency}}</strong>.</p>
<p>Booking reference: <strong>{{.BookingID}}</strong></p>`,
	),
	TemplatePaymentInstructions: mustTemplate(
		"Payment instructions for booking {{.BookingID}}",
		`<h1>Complete your payment</h1>
<p>Please transfer <strong>{{.Amount}} {{.Currency}}</strong> to account <strong>{{.AccountID}}</strong>.</p>
<p>Use <strong>{{.BookingID}}</strong> as the payment reference. Your booking is confirmed once our team has verified the transfer.</p>`,
	),
	TemplatePaymentReceived: mustTemplate(
		"Payment received for booking {{.BookingID}}",
		`<h1>Payment received</h1>
<p>We have received <strong>{{.Amount}} {{.Currency}}</strong> for booking <strong>{{.BookingID}}</strong>.</p>`,
	),
	TemplateTest: mustTemplate(
		"Test email from {{.Provider}}",
		`<h1>It works</h1>
<p>This test email was delivered through <strong>{{.Provider}}</strong>.</p>`,
	),
}

func mustTemplate(subject, body string) templateDef {
	return templateDef{
		subject: texttemplate.Must(texttemplate.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(layoutHead + body + layoutFoot)),
	}
}

// Render returns the subject and HTML body for name. It has no side effects.
func Render(name Template, data map[string]any) (string, string, error) {
	def, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	var subject, body bytes.Buffer
	if err := def.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := def.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subject.String(), body.String(), nil
}
