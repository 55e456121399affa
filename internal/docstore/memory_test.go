package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/docstore"
)

func TestMemory_ListPreservesInsertionOrder(t *testing.T) {
	// GIVEN: three documents created in sequence
	// WHEN: listing the collection
	// THEN: they come back in creation order

	mem := docstore.NewMemory()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := mem.Create(ctx, "things", id, map[string]any{"n": id})
		require.NoError(t, err)
	}

	docs, err := mem.List(ctx, "things")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestMemory_ListFiltersOnFieldEquality(t *testing.T) {
	mem := docstore.NewMemory()
	ctx := context.Background()

	_, err := mem.Create(ctx, "things", "", map[string]any{"owner": "u1"})
	require.NoError(t, err)
	_, err = mem.Create(ctx, "things", "", map[string]any{"owner": "u2"})
	require.NoError(t, err)

	docs, err := mem.List(ctx, "things", docstore.Filter{Field: "owner", Equals: "u2"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u2", docs[0].String("owner"))
}

func TestMemory_GetUpdateDelete(t *testing.T) {
	mem := docstore.NewMemory()
	ctx := context.Background()

	doc, err := mem.Create(ctx, "things", "", map[string]any{"v": "1"})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	got, err := mem.Get(ctx, "things", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", got.String("v"))

	_, err = mem.Update(ctx, "things", doc.ID, map[string]any{"v": "2"})
	require.NoError(t, err)
	got, err = mem.Get(ctx, "things", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.String("v"))

	require.NoError(t, mem.Delete(ctx, "things", doc.ID))
	_, err = mem.Get(ctx, "things", doc.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, mem.Delete(ctx, "things", doc.ID), docstore.ErrNotFound)
}
