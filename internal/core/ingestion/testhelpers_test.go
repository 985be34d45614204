package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jinford/course-rag/internal/core/embedding"
	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
	"github.com/jinford/course-rag/internal/core/vectorindex"
	"github.com/jinford/course-rag/internal/core/vectorindex/vectorindextest"
)

const testDim = 3

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSource は FetchResources を差し替えられる SourceRepository
type stubSource struct {
	records   []SourceRecord
	err       error
	lastScope vectorindex.Scope
	calls     int
}

func (s *stubSource) FetchResources(ctx context.Context, scope vectorindex.Scope) ([]SourceRecord, error) {
	s.calls++
	s.lastScope = scope
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

// stubEmbedder は常に testDim 次元のベクトルを返す。failOn に含まれる呼び出し回は失敗する。
type stubEmbedder struct {
	calls  int
	failOn map[int]bool
	all    bool
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, mode embedding.Mode) ([][]float32, error) {
	e.calls++
	if e.all || e.failOn[e.calls] {
		return nil, errors.New("embedding service unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, float32(i), 0}
	}
	return out, nil
}

func (e *stubEmbedder) ModelName() string { return "stub" }
func (e *stubEmbedder) Dimension() int    { return testDim }
func (e *stubEmbedder) MaxBatchSize() int { return 100 }

type stubLocker struct {
	keys []string
	err  error
}

func (l *stubLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func newBatcher(emb embedding.Embedder, batchSize int) *embedding.Batcher {
	return embedding.NewBatcher(emb,
		embedding.WithBatchSize(batchSize),
		embedding.WithBatchDelay(0),
		embedding.WithBatcherLogger(discardLogger()),
	)
}

func testConfig() WriterConfig {
	cfg := DefaultWriterConfig()
	cfg.VectorSize = testDim
	return cfg
}

func ptr[T any](v T) *T { return &v }

func summaryJSON(content string) JSONField {
	return RawField(fmt.Sprintf(`{"content": %q}`, content))
}

func chaptersJSON(topic, sub, content string) JSONField {
	return RawField(fmt.Sprintf(`{"Topics": [{"title": %q, "Sub-topics": [{"title": %q, "content": %q}]}]}`, topic, sub, content))
}

func nWords(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func seededPoint(id uint64, course, module, resource int64) vectorindex.Point {
	return vectorindex.Point{
		ID:     id,
		Vector: []float32{0, 0, 1},
		Payload: map[string]any{
			"course_id":   course,
			"module_id":   module,
			"resource_id": resource,
			"chunk_type":  "summary",
		},
	}
}

func newStore() *vectorindextest.Store {
	return vectorindextest.NewStore()
}

// stubReader は固定ページを返す DocumentReader
type stubReader struct {
	pages []chunk.Page
	err   error
}

func (r *stubReader) ReadPages(ctx context.Context, path string) ([]chunk.Page, error) {
	return r.pages, r.err
}

// memFile はメモリ上の ResourceFile
type memFile struct {
	files map[string][]Resource
}

func (f *memFile) Write(path string, resources []Resource) error {
	if f.files == nil {
		f.files = map[string][]Resource{}
	}
	f.files[path] = resources
	return nil
}

func (f *memFile) Read(path string) ([]Resource, error) {
	r, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	return r, nil
}
