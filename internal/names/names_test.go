package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple word", "customer", "Customer"},
		{"two words", "line item", "LineItem"},
		{"already formatted", "LineItem", "LineItem"},
		{"path separator", "price/unit", "PriceUnit"},
		{"parentheses", "order (retail)", "OrderRetail"},
		{"mixed punctuation", "net-weight_(kg)", "NetWeightKg"},
		{"digits preserved", "iso 3166 code", "Iso3166Code"},
		{"internal casing kept", "XMLPayload", "XMLPayload"},
		{"empty", "", ""},
		{"only punctuation", "//()", ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, Format(tc.input))
		})
	}
}

// Format must be idempotent so identifiers survive being re-fed through the
// formatter (e.g. when a linker re-derives a property name from a formatted
// type name).
func TestFormatIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"line item",
		"price/unit",
		"order (retail)",
		"Already/Formatted (Name)",
		"a b c d",
	}
	for _, in := range inputs {
		once := Format(in)
		assert.Equal(t, once, Format(once), "Format not idempotent for %q", in)
	}
}

func TestProperty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lineItem", Property("Line Item"))
	assert.Equal(t, "customer", Property("Customer"))
	assert.Equal(t, "", Property(""))
	assert.Equal(t, "priceUnit", Property("price/unit"))
}

func TestPath(t *testing.T) {
	t.Parallel()

	t.Run("joins root to leaf", func(t *testing.T) {
		t.Parallel()
		got := Path([]string{"Sales Glossary", "Orders", "Retail (EU)"})
		assert.Equal(t, "SalesGlossary/Orders/RetailEU", got)
	})

	t.Run("drops empty segments", func(t *testing.T) {
		t.Parallel()
		got := Path([]string{"Sales", "", "Orders"})
		assert.Equal(t, "Sales/Orders", got)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", Path(nil))
	})
}
