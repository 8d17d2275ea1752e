package delivery_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

func TestParseDocument(t *testing.T) {
	t.Parallel()

	t.Run("collection", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, blogDocument)

		assert.Equal(t, 10, doc.Limit)
		assert.Equal(t, 3, doc.Total)
		assert.Len(t, doc.Items, 3)
		assert.Len(t, doc.Includes.Entry, 1)
		assert.Len(t, doc.Includes.Asset, 1)
		assert.Equal(t, "blogPost", doc.Items[0].Sys.ContentTypeID())
	})

	t.Run("numbers keep precision", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `{"items": [{"sys": {"id": "n", "type": "Entry"}, "fields": {"big": 9007199254740993}}]}`)

		assert.Equal(t, json.Number("9007199254740993"), doc.Items[0].Fields["big"])
	})

	t.Run("single resource", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `{"sys": {"id": "logo", "type": "Asset"}, "fields": {"title": "Logo"}}`)

		require.Len(t, doc.Items, 1)
		assert.Equal(t, 1, doc.Total)
		assert.Equal(t, "logo", doc.Items[0].Sys.ID)
		assert.Equal(t, "Logo", doc.Items[0].Fields["title"])
	})

	t.Run("empty collection", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `{"sys": {"type": "Array"}, "total": 0, "items": []}`)

		assert.Empty(t, doc.Items)
		assert.NotNil(t, doc.Items)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		for _, data := range []string{`not json`, `{"total": 1}`, `[]`} {
			_, err := delivery.ParseDocument([]byte(data))
			require.ErrorIs(t, err, delivery.ErrInvalidDocument, data)
		}
	})
}

func TestSys_Key(t *testing.T) {
	t.Parallel()

	key, ok := delivery.Sys{ID: "a", Type: delivery.TypeAsset}.Key()
	require.True(t, ok)
	assert.Equal(t, "Asset:a", key.String())

	_, ok = delivery.Sys{ID: "a", Type: delivery.TypeDeletedEntry}.Key()
	assert.False(t, ok)

	_, ok = delivery.Sys{Type: delivery.TypeEntry}.Key()
	assert.False(t, ok)

	assert.Empty(t, delivery.Sys{ID: "a", Type: delivery.TypeAsset}.ContentTypeID())
}

func TestCollection(t *testing.T) {
	t.Parallel()

	col, err := delivery.Decode[*delivery.Entity]([]byte(`{
	  "items": [{"sys": {"id": "1", "type": "Entry"}, "fields": {"image": {"sys": {"type": "Link", "linkType": "Asset", "id": "missing"}}}}]
	}`))
	require.NoError(t, err)

	assert.True(t, col.HasErrors())

	resErr, ok := col.ErrorFor(delivery.LinkTypeAsset, "missing")
	require.True(t, ok)
	assert.Equal(t, delivery.ReasonNotFound, resErr.Reason)

	_, ok = col.ErrorFor(delivery.LinkTypeEntry, "missing")
	assert.False(t, ok)

	data, err := json.Marshal(col)
	require.NoError(t, err)
	assert.JSONEq(t, `{
	  "skip": 0, "limit": 0, "total": 0,
	  "items": [{"sys": {"id": "1", "type": "Entry"}, "fields": {"image": null}}],
	  "errors": [{"id": "missing", "linkType": "Asset", "reason": "notFound"}]
	}`, string(data))

	_, err = delivery.Decode[*delivery.Entity]([]byte(`{`))
	require.ErrorIs(t, err, delivery.ErrInvalidDocument)
}
