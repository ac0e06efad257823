package jsonschema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentExtensionsRoundTrip(t *testing.T) {
	t.Parallel()

	doc := &Document{
		Schema: DraftURI,
		ID:     "https://example.com/Sales/Order",
		Title:  "Order",
		Type:   "object",
		Properties: map[string]*Property{
			"customer": {Ref: "https://example.com/Sales/Customer"},
		},
		Extensions: map[string]any{
			"x-term-id": "t-order",
		},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	// Extension keys appear at the top level of the serialized form.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "t-order", raw["x-term-id"])

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(doc, &back); diff != "" {
		t.Errorf("document changed across serialization (-want +got):\n%s", diff)
	}
}

func TestDocumentNonExtensionUnknownKeysIgnored(t *testing.T) {
	t.Parallel()

	data := []byte(`{"type":"string","minLength":3,"x-origin":"igc"}`)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "string", doc.Type)
	assert.Equal(t, "igc", doc.Extensions["x-origin"])
	assert.NotContains(t, doc.Extensions, "minLength")
}

func TestEnsureObject(t *testing.T) {
	t.Parallel()

	t.Run("already an object", func(t *testing.T) {
		t.Parallel()
		doc := &Document{Type: "object"}
		converted := doc.EnsureObject()
		assert.False(t, converted)
		assert.NotNil(t, doc.Properties)
	})

	t.Run("converts a primitive and clears enum", func(t *testing.T) {
		t.Parallel()
		doc := &Document{Type: "string", Enum: []string{"A", "B"}, Format: "date"}
		converted := doc.EnsureObject()
		assert.True(t, converted)
		assert.Equal(t, "object", doc.Type)
		assert.Nil(t, doc.Enum)
		assert.Empty(t, doc.Format)
	})

	t.Run("untyped document is not reported as converted", func(t *testing.T) {
		t.Parallel()
		doc := &Document{}
		assert.False(t, doc.EnsureObject())
		assert.Equal(t, "object", doc.Type)
	})
}
