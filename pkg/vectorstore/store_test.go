package vectorstore

import (
	"context"
	"testing"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id, userID, text string, embedding ...float32) *models.DocumentChunk {
	return &models.DocumentChunk{ID: id, DocumentID: "doc", UserID: userID, Text: text, Embedding: embedding}
}

func TestStore_QueryRanksByCosineAndFiltersUser(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []*models.DocumentChunk{
		chunk("doc-0", "u1", "exact", 1, 0),
		chunk("doc-1", "u1", "close", 0.9, 0.1),
		chunk("doc-2", "u1", "orthogonal", 0, 1),
		chunk("doc-3", "u2", "other user", 1, 0),
	}))

	matches, err := store.Query(ctx, "u1", []float32{1, 0}, 2)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "close", matches[1].Text)
}

func TestStore_UpsertReplacesByID(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []*models.DocumentChunk{chunk("a", "u", "old", 1)}))
	require.NoError(t, store.Upsert(ctx, []*models.DocumentChunk{chunk("a", "u", "new", 1)}))

	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].Text)
}

func TestStore_QueryNonPositiveTopK(t *testing.T) {
	store := New()

	matches, err := store.Query(context.Background(), "u", []float32{1}, 0)

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}
