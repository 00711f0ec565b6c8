package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	subject, html, err := Render(TemplatePaymentInstructions, map[string]any{
		"BookingID": "bk-42",
		"Amount":    "250.00",
		"Currency":  "EUR",
		"AccountID": "acct-9",
	})
	require.NoError(t, err)

	assert.Equal(t, "Payment instructions for booking bk-42", subject)
	assert.Contains(t, html, "250.00 EUR")
	assert.Contains(t, html, "acct-9")
	assert.Contains(t, html, "<!DOCTYPE html>")
}

func TestRender_EscapesHTML(t *testing.T) {
	_, html, err := Render(TemplateBookingConfirmation, map[string]any{
		"BookingID": "bk-1",
		"GuestName": "<script>alert(1)</script>",
		"Amount":    "10.00",
		"Currency":  "EUR",
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRender_IsDeterministic(t *testing.T) {
	data := map[string]any{"Provider": "SMTP"}
	s1, h1, err := Render(TemplateTest, data)
	require.NoError(t, err)
	s2, h2, err := Render(TemplateTest, data)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, h1, h2)
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, err := Render(Template("newsletter"), nil)
	assert.Error(t, err)
}
