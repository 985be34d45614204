package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/course-rag/internal/core/embedding"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// ExportResult は中間ファイル出力の結果
type ExportResult struct {
	Path     string
	Fetched  int
	Exported int
	Skipped  int
}

// LoadResult は中間ファイル取り込みの結果
type LoadResult struct {
	Path             string
	Resources        int
	ChunksBuilt      int
	FailedEmbeddings int
	VectorsUploaded  int
	StartID          uint64
	Recreated        bool
	TotalVectors     uint64
}

// BatchService はソースを中間 JSON に書き出し、それをまとめてベクトルストアへ取り込む
type BatchService struct {
	source     SourceRepository
	file       ResourceFile
	store      vectorindex.Store
	writer     *indexWriter
	collection string
	logger     *slog.Logger
}

// NewBatchService は新しいBatchServiceを作成する
func NewBatchService(
	source SourceRepository,
	file ResourceFile,
	store vectorindex.Store,
	batcher *embedding.Batcher,
	collection string,
	opts ...SyncServiceOption,
) *BatchService {
	options := syncServiceOptions{
		config: DefaultWriterConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &BatchService{
		source:     source,
		file:       file,
		store:      store,
		writer:     newIndexWriter(store, batcher, options.config, options.logger),
		collection: collection,
		logger:     options.logger,
	}
}

// Export はスコープ内のリソースを正規化して path に書き出す
func (s *BatchService) Export(ctx context.Context, scope vectorindex.Scope, path string) (*ExportResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	records, err := s.source.FetchResources(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyScope
	}

	resources, stats := Normalize(records, s.logger)
	if len(resources) == 0 {
		return nil, ErrTransformInvalid
	}

	if err := s.file.Write(path, resources); err != nil {
		return nil, fmt.Errorf("failed to write resources: %w", err)
	}
	s.logger.Info("中間ファイルを書き出しました", "path", path, "resources", len(resources))

	return &ExportResult{
		Path:     path,
		Fetched:  len(records),
		Exported: len(resources),
		Skipped:  stats.SkippedEmpty + stats.SkippedNull,
	}, nil
}

// Load は中間ファイルを読み込んでベクトルを追加する。
// recreate が true ならコレクションを作り直してから取り込む。既存スコープの削除は行わない。
func (s *BatchService) Load(ctx context.Context, path string, recreate bool) (*LoadResult, error) {
	if s.writer.batcher == nil {
		return nil, ErrEmbedderUnavailable
	}
	resources, err := s.file.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resources: %w", err)
	}
	if len(resources) == 0 {
		return nil, ErrTransformInvalid
	}
	result := &LoadResult{Path: path, Resources: len(resources), Recreated: recreate}

	if recreate {
		if err := vectorindex.RecreateCollection(ctx, s.store, s.collection, s.writer.cfg.VectorSize, s.writer.cfg.Distance); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}
		s.logger.Info("コレクションを再作成しました", "collection", s.collection)
	}
	if _, err := s.writer.prepare(ctx, s.collection, vectorindex.ScopeFields); err != nil {
		return nil, err
	}

	var items []embedded
	for _, res := range resources {
		chunks := res.Chunks(s.writer.cfg.MaxWords)
		result.ChunksBuilt += len(chunks)
		ok, failed, err := s.writer.embed(ctx, chunkDocuments(chunks))
		if err != nil {
			return nil, err
		}
		result.FailedEmbeddings += failed
		items = append(items, ok...)
	}
	if len(items) == 0 {
		return nil, ErrNoVectors
	}

	startID, _, err := s.writer.allocate(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	result.StartID = startID

	uploaded, _, err := s.writer.replacer.Upload(ctx, s.collection, buildPoints(startID, items))
	result.VectorsUploaded = uploaded
	if err != nil {
		return result, storeErr(err)
	}

	result.TotalVectors = s.writer.totalVectors(ctx, s.collection)
	s.logger.Info("中間ファイルを取り込みました",
		"path", path,
		"resources", result.Resources,
		"uploaded", result.VectorsUploaded,
		"failedEmbeddings", result.FailedEmbeddings,
	)
	return result, nil
}
