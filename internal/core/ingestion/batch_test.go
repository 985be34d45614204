package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/course-rag/internal/core/vectorindex"
)

func TestBatchService_ExportThenLoad(t *testing.T) {
	source := &stubSource{records: []SourceRecord{
		{CourseID: 1, ModuleID: ptr[int64](2), ResourceID: 3, Summary: summaryJSON("a"), Chapters: chaptersJSON("T", "S", "x y z")},
		{CourseID: 1, ModuleID: ptr[int64](2), ResourceID: 4},
	}}
	file := &memFile{}
	store := newStore()
	store.Seed(videos, testDim, seededPoint(7, 5, 5, 5))
	svc := NewBatchService(source, file, store, newBatcher(&stubEmbedder{}, 100), videos,
		WithSyncLogger(discardLogger()),
		WithSyncConfig(testConfig()),
	)
	ctx := context.Background()

	exported, err := svc.Export(ctx, vectorindex.Scope{}, "out.json")
	require.NoError(t, err)
	assert.Equal(t, 2, exported.Fetched)
	assert.Equal(t, 1, exported.Exported)
	assert.Equal(t, 1, exported.Skipped)
	assert.True(t, source.lastScope.IsEmpty())

	loaded, err := svc.Load(ctx, "out.json", false)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.ChunksBuilt)
	assert.Equal(t, 2, loaded.VectorsUploaded)
	assert.Equal(t, uint64(8), loaded.StartID)
	assert.Len(t, store.Points(videos), 3)
	assert.Zero(t, store.DeleteCalls)

	loaded, err = svc.Load(ctx, "out.json", true)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), loaded.StartID)
	assert.Equal(t, uint64(2), loaded.TotalVectors)
}

func TestBatchService_ExportEmpty(t *testing.T) {
	svc := NewBatchService(&stubSource{}, &memFile{}, newStore(), newBatcher(&stubEmbedder{}, 100), videos,
		WithSyncLogger(discardLogger()))

	_, err := svc.Export(context.Background(), vectorindex.CourseScope(1), "out.json")

	assert.ErrorIs(t, err, ErrEmptyScope)
}

func TestBatchService_ExportWithoutEmbedder(t *testing.T) {
	source := &stubSource{records: []SourceRecord{
		{CourseID: 1, ModuleID: ptr[int64](2), ResourceID: 3, Summary: summaryJSON("a")},
	}}
	file := &memFile{}
	svc := NewBatchService(source, file, newStore(), nil, videos, WithSyncLogger(discardLogger()))

	exported, err := svc.Export(context.Background(), vectorindex.CourseScope(1), "out.json")
	require.NoError(t, err)
	assert.Equal(t, 1, exported.Exported)

	_, err = svc.Load(context.Background(), "out.json", false)
	assert.ErrorIs(t, err, ErrEmbedderUnavailable)
}
