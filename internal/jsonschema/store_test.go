package jsonschema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleDoc(id string) *Document {
	return &Document{
		Schema: DraftURI,
		ID:     id,
		Title:  "Customer",
		Type:   "object",
		Properties: map[string]*Property{
			"name": {Type: "string"},
		},
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	t.Run("get returns a fresh copy", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		id := "https://example.com/Sales/Customer"
		require.NoError(t, store.Put(id, sampleDoc(id), nil))

		first, err := store.Get(id)
		require.NoError(t, err)
		first.Properties["extra"] = &Property{Type: "string"}

		second, err := store.Get(id)
		require.NoError(t, err)
		assert.NotContains(t, second.Properties, "extra",
			"mutating a retrieved document must not leak into the store")
	})

	t.Run("missing document", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		_, err := store.Get("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("read modify write", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		id := "https://example.com/Sales/Customer"
		require.NoError(t, store.Put(id, sampleDoc(id), nil))

		doc, err := store.Get(id)
		require.NoError(t, err)
		doc.Properties["purchase"] = &Property{Type: "object"}
		require.NoError(t, store.Put(id, doc, nil))

		reread, err := store.Get(id)
		require.NoError(t, err)
		assert.Contains(t, reread.Properties, "purchase")
	})

	t.Run("sidecar retained across doc-only put", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		id := "https://example.com/Sales/Customer"
		side := &Sidecar{TermID: "t1", IdentityPath: "Sales/Customer"}
		require.NoError(t, store.Put(id, sampleDoc(id), side))
		require.NoError(t, store.Put(id, sampleDoc(id), nil))

		got, ok := store.Sidecar(id)
		require.True(t, ok)
		assert.Equal(t, "t1", got.TermID)
	})

	t.Run("ids sorted", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		require.NoError(t, store.Put("b", sampleDoc("b"), nil))
		require.NoError(t, store.Put("a", sampleDoc("a"), nil))
		assert.Equal(t, []string{"a", "b"}, store.IDs())
	})
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	t.Run("writes document and sidecar", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		store, err := NewFileStore(dir, zap.NewNop())
		require.NoError(t, err)

		id := "https://example.com/Sales/Customer"
		side := &Sidecar{TermID: "t1", IdentityPath: "Sales/Customer"}
		require.NoError(t, store.Put(id, sampleDoc(id), side))

		wantFile := filepath.Join(dir, "example.com_Sales_Customer.json")
		assert.FileExists(t, wantFile)
		assert.FileExists(t, wantFile+SidecarExt)

		doc, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "Customer", doc.Title)
	})

	t.Run("colliding names map to distinct files", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		store, err := NewFileStore(dir, zap.NewNop())
		require.NoError(t, err)

		a := "https://example.com/Sales/Item"
		b := "https://example.com/Inventory/Item"
		require.NoError(t, store.Put(a, sampleDoc(a), nil))
		require.NoError(t, store.Put(b, sampleDoc(b), nil))

		assert.FileExists(t, filepath.Join(dir, "example.com_Sales_Item.json"))
		assert.FileExists(t, filepath.Join(dir, "example.com_Inventory_Item.json"))
	})

	t.Run("malformed persisted document is a parse error", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		store, err := NewFileStore(dir, zap.NewNop())
		require.NoError(t, err)

		id := "https://example.com/Sales/Broken"
		require.NoError(t, store.Put(id, sampleDoc(id), nil))
		require.NoError(t, os.WriteFile(filepath.Join(dir, fileName(id)), []byte("{not json"), 0o644))

		_, err = store.Get(id)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		store, err := NewFileStore(dir, zap.NewNop())
		require.NoError(t, err)
		id := "https://example.com/Sales/Customer"
		require.NoError(t, store.Put(id, sampleDoc(id), nil))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp-")
		}
	})
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com_Sales_Customer.json",
		fileName("https://example.com/Sales/Customer"))
	assert.Equal(t, "Sales_Customer.json", fileName("Sales/Customer"))
	assert.Equal(t, "plain.json", fileName("plain.json"))
}
