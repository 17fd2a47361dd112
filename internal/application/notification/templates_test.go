package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_Render(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	msg, err := templates.Render(CodeOrderPlaced, "jane@example.com", OrderContext{
		User:  Recipient{Email: "jane@example.com", FullName: "jane doe"},
		Order: sampleOrder("100023"),
		Lines: sampleOrder("100023").Lines,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"jane@example.com"}, msg.To)
	assert.Equal(t, "Confirmation of order 100023", msg.Subject)
	assert.Contains(t, msg.Body, "Grinder brush - quantity: 1 - price: 5.00 EUR")
	assert.Contains(t, msg.HTML, "<td>Espresso beans</td><td>2</td><td>11.00 EUR</td>")
	assert.Contains(t, msg.HTML, "Hello Jane Doe,")
}

func TestTemplates_HTMLIsEscaped(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	o := sampleOrder("<b>1</b>")
	msg, err := templates.Render(CodeOrderPlaced, "x@example.com", OrderContext{Order: o, Lines: o.Lines})
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "&lt;b&gt;1&lt;/b&gt;")
	assert.Contains(t, msg.Body, "<b>1</b>")
}

func TestTemplates_UnknownCode(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	_, err = templates.Render("newsletter", "x@example.com", nil)
	assert.Error(t, err)
}
