package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

const materials = "materials"

func newMaterialService(reader DocumentReader, store vectorindex.Store, emb *stubEmbedder) *MaterialService {
	return NewMaterialService(reader, store, newBatcher(emb, 100), materials,
		WithSyncLogger(discardLogger()),
		WithSyncConfig(testConfig()),
	)
}

func TestMaterialService_SyncPDF(t *testing.T) {
	reader := &stubReader{pages: []chunk.Page{
		{Number: 1, Text: nWords(300)},
		{Number: 4, Text: "closing words"},
	}}
	store := newStore()
	store.Seed(materials, testDim,
		vectorindex.Point{ID: 3, Vector: []float32{0, 0, 1}, Payload: map[string]any{"course_id": int64(9)}},
		vectorindex.Point{ID: 4, Vector: []float32{0, 0, 1}, Payload: map[string]any{"course_id": int64(8)}},
	)

	result := newMaterialService(reader, store, &stubEmbedder{}).SyncPDF(context.Background(), 9, "book.pdf", "Guide")

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 3, result.ChunksBuilt)
	assert.Equal(t, 3, result.VectorsUploaded)
	assert.Equal(t, uint64(1), result.Deleted)

	points := store.Points(materials)
	require.Len(t, points, 4)
	assert.Equal(t, uint64(4), points[0].ID)
	assert.Equal(t, "9_Guide_1_0", points[1].Payload["chunk_id"])
	assert.Equal(t, "9_Guide_4_2", points[3].Payload["chunk_id"])
	assert.Equal(t, map[string]vectorindex.FieldType{"course_id": vectorindex.FieldTypeInteger}, store.Indexes(materials))
}

func TestMaterialService_ExtractionFailureKeepsVectors(t *testing.T) {
	store := newStore()
	store.Seed(materials, testDim, vectorindex.Point{ID: 1, Vector: []float32{0, 0, 1}, Payload: map[string]any{"course_id": int64(9)}})

	result := newMaterialService(&stubReader{err: errors.New("corrupt pdf")}, store, &stubEmbedder{}).
		SyncPDF(context.Background(), 9, "book.pdf", "Guide")

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrSourceUnavailable)
	assert.Zero(t, store.DeleteCalls)

	result = newMaterialService(&stubReader{}, store, &stubEmbedder{}).SyncPDF(context.Background(), 9, "book.pdf", "Guide")
	assert.ErrorIs(t, result.Err, ErrEmptyScope)
	assert.Zero(t, store.DeleteCalls)
}
