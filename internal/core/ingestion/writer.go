package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/course-rag/internal/core/embedding"
	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

const (
	// DefaultVectorSize は text-embedding-004 の次元数
	DefaultVectorSize = 768
)

// WriterConfig はベクトル書き込みの設定
type WriterConfig struct {
	MaxWords        int
	VectorSize      int
	Distance        vectorindex.Distance
	UpsertBatchSize int
	IDScanLimit     int
	// StrictIDAllocation が true なら ID 走査失敗時に書き込まず失敗とする
	StrictIDAllocation bool
}

// DefaultWriterConfig はデフォルト設定を返す
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxWords:        chunk.DefaultMaxWords,
		VectorSize:      DefaultVectorSize,
		Distance:        vectorindex.DistanceCosine,
		UpsertBatchSize: vectorindex.DefaultUpsertBatchSize,
		IDScanLimit:     vectorindex.DefaultIDScanLimit,
	}
}

func (c WriterConfig) withDefaults() WriterConfig {
	d := DefaultWriterConfig()
	if c.MaxWords <= 0 {
		c.MaxWords = d.MaxWords
	}
	if c.VectorSize <= 0 {
		c.VectorSize = d.VectorSize
	}
	if c.Distance == "" {
		c.Distance = d.Distance
	}
	if c.UpsertBatchSize <= 0 {
		c.UpsertBatchSize = d.UpsertBatchSize
	}
	if c.IDScanLimit <= 0 {
		c.IDScanLimit = d.IDScanLimit
	}
	return c
}

// document は埋め込み対象1件 (本文とペイロード)
type document struct {
	text    string
	payload map[string]any
}

func chunkDocuments(chunks []chunk.Chunk) []document {
	docs := make([]document, len(chunks))
	for i, c := range chunks {
		docs[i] = document{text: c.Text, payload: c.Payload()}
	}
	return docs
}

func pageDocuments(chunks []chunk.PageChunk) []document {
	docs := make([]document, len(chunks))
	for i, c := range chunks {
		docs[i] = document{text: c.Text, payload: c.Payload()}
	}
	return docs
}

// embedded は埋め込みに成功した文書
type embedded struct {
	vector  []float32
	payload map[string]any
}

// indexWriter は 埋め込み → ID 採番 → スコープ置換 の共通処理
type indexWriter struct {
	store     vectorindex.Store
	batcher   *embedding.Batcher
	allocator *vectorindex.IDAllocator
	replacer  *vectorindex.Replacer
	cfg       WriterConfig
	logger    *slog.Logger
}

func newIndexWriter(store vectorindex.Store, batcher *embedding.Batcher, cfg WriterConfig, logger *slog.Logger) *indexWriter {
	cfg = cfg.withDefaults()
	return &indexWriter{
		store:   store,
		batcher: batcher,
		allocator: vectorindex.NewIDAllocator(store,
			vectorindex.WithScanLimit(cfg.IDScanLimit),
			vectorindex.WithAllocatorLogger(logger),
		),
		replacer: vectorindex.NewReplacer(store,
			vectorindex.WithUpsertBatchSize(cfg.UpsertBatchSize),
			vectorindex.WithReplacerLogger(logger),
		),
		cfg:    cfg,
		logger: logger,
	}
}

// prepare はコレクションとスコープ用インデックスを用意する
func (w *indexWriter) prepare(ctx context.Context, collection string, fields []string) ([]vectorindex.IndexOutcome, error) {
	created, err := vectorindex.EnsureCollection(ctx, w.store, collection, w.cfg.VectorSize, w.cfg.Distance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if created {
		w.logger.Info("コレクションを作成しました", "collection", collection, "size", w.cfg.VectorSize, "distance", w.cfg.Distance)
	}
	return vectorindex.EnsureFieldIndexes(ctx, w.store, collection, fields, w.logger), nil
}

// embed は文書を埋め込み、成功したものだけを入力順で返す
func (w *indexWriter) embed(ctx context.Context, docs []document) ([]embedded, int, error) {
	if len(docs) == 0 {
		return nil, 0, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.text
	}

	vectors, stats, err := w.batcher.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, 0, err
	}

	out := make([]embedded, 0, len(docs))
	for i, v := range vectors {
		if !v.OK() {
			continue
		}
		out = append(out, embedded{vector: v.Values, payload: docs[i].payload})
	}
	return out, stats.FailedItems, nil
}

// allocate は開始IDを決める。走査失敗時は厳格モードならエラー、それ以外は 0 から。
func (w *indexWriter) allocate(ctx context.Context, collection string) (uint64, bool, error) {
	next, ok := w.allocator.Next(ctx, collection)
	if !ok && w.cfg.StrictIDAllocation {
		return 0, true, ErrIDAllocation
	}
	return next, !ok, nil
}

func buildPoints(startID uint64, items []embedded) []vectorindex.Point {
	points := make([]vectorindex.Point, len(items))
	for i, item := range items {
		points[i] = vectorindex.Point{
			ID:      startID + uint64(i),
			Vector:  item.vector,
			Payload: item.payload,
		}
	}
	return points
}

func (w *indexWriter) totalVectors(ctx context.Context, collection string) uint64 {
	info, err := w.store.CollectionInfo(ctx, collection)
	if err != nil {
		w.logger.Warn("コレクション情報の取得に失敗しました", "collection", collection, "error", err)
		return 0
	}
	return info.PointCount
}
