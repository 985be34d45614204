package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/course-rag/internal/core/embedding"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// SyncService はコースリソースをベクトルストアへ増分同期する
type SyncService struct {
	source     SourceRepository
	writer     *indexWriter
	collection string
	locker     ScopeLocker
	logger     *slog.Logger
}

type syncServiceOptions struct {
	config WriterConfig
	locker ScopeLocker
	logger *slog.Logger
}

// SyncServiceOption は SyncService のオプション設定
type SyncServiceOption func(*syncServiceOptions)

// WithSyncLogger は SyncService にロガーを設定する
func WithSyncLogger(logger *slog.Logger) SyncServiceOption {
	return func(o *syncServiceOptions) {
		o.logger = logger
	}
}

// WithSyncConfig は書き込み設定を上書きする
func WithSyncConfig(cfg WriterConfig) SyncServiceOption {
	return func(o *syncServiceOptions) {
		o.config = cfg
	}
}

// WithScopeLocker はスコープ単位の排他制御を設定する
func WithScopeLocker(locker ScopeLocker) SyncServiceOption {
	return func(o *syncServiceOptions) {
		o.locker = locker
	}
}

// NewSyncService は新しいSyncServiceを作成する
func NewSyncService(
	source SourceRepository,
	store vectorindex.Store,
	batcher *embedding.Batcher,
	collection string,
	opts ...SyncServiceOption,
) *SyncService {
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

	return &SyncService{
		source:     source,
		writer:     newIndexWriter(store, batcher, options.config, options.logger),
		collection: collection,
		locker:     options.locker,
		logger:     options.logger,
	}
}

// SyncScope はスコープ内のリソースを取得・変換・検証し、既存ベクトルを置き換える。
// 失敗しても error は返さず、結果オブジェクトに理由を記録する。
// 取得・変換・埋め込みのいずれかで失敗した場合は既存ベクトルを削除しない。
func (s *SyncService) SyncScope(ctx context.Context, scope vectorindex.Scope) *SyncResult {
	result := newSyncResult(scope, s.collection)
	logger := s.logger.With("runID", result.RunID.String())

	if err := scope.ValidateForWrite(); err != nil {
		return result.fail("invalid scope", err)
	}

	logger.Info("リソース同期を開始", scope.LogAttrs()...)

	run := func(ctx context.Context) error {
		s.runSync(ctx, logger, scope, result)
		return nil
	}
	if s.locker != nil {
		if err := s.locker.WithLock(ctx, lockKey(s.collection, scope), run); err != nil && result.Stage == StageStarted {
			return result.fail("scope lock unavailable", err)
		}
	} else {
		_ = run(ctx)
	}

	if result.Success {
		logger.Info("リソース同期が完了しました",
			"resources", result.ResourcesProcessed,
			"chunks", result.ChunksBuilt,
			"uploaded", result.VectorsUploaded,
			"failedEmbeddings", result.FailedEmbeddings,
			"deleted", result.Deleted,
			"totalVectors", result.TotalVectors,
			"duration", result.Duration,
		)
	} else {
		logger.Error("リソース同期に失敗しました",
			"stage", result.FailedAt,
			"reason", result.Reason,
			"error", result.Err,
		)
	}
	return result
}

func (s *SyncService) runSync(ctx context.Context, logger *slog.Logger, scope vectorindex.Scope, result *SyncResult) {
	// FETCH
	records, err := s.source.FetchResources(ctx, scope)
	if err != nil {
		result.fail("source query failed", fmt.Errorf("%w: %w", ErrSourceUnavailable, err))
		return
	}
	result.ResourcesFetched = len(records)
	if len(records) == 0 {
		result.fail("source query returned no results", ErrEmptyScope)
		return
	}
	result.advance(StageFetched)
	logger.Info("リソースを取得しました", "count", len(records))

	// TRANSFORM / VALIDATE
	resources, stats := Normalize(records, logger)
	result.ResourcesSkipped = stats.SkippedEmpty + stats.SkippedNull
	result.advance(StageTransformed)
	if len(resources) == 0 {
		result.fail("all resources have empty summary and chapters", ErrTransformInvalid)
		return
	}
	result.ResourcesProcessed = len(resources)
	result.advance(StageValidated)
	logger.Info("データ検証を通過しました", "valid", len(resources), "skipped", result.ResourcesSkipped)

	outcomes, err := s.writer.prepare(ctx, s.collection, vectorindex.ScopeFields)
	result.IndexOutcomes = outcomes
	if err != nil {
		result.fail("collection unavailable", err)
		return
	}

	// EMBED
	var items []embedded
	for _, res := range resources {
		chunks := res.Chunks(s.writer.cfg.MaxWords)
		result.ChunksBuilt += len(chunks)
		logger.Info("リソースを処理中",
			"resourceID", res.ResourceID,
			"moduleID", res.ModuleID,
			"chunks", len(chunks),
		)

		ok, failed, err := s.writer.embed(ctx, chunkDocuments(chunks))
		if err != nil {
			result.fail("embedding interrupted", err)
			return
		}
		result.FailedEmbeddings += failed
		items = append(items, ok...)
	}
	if len(items) == 0 {
		result.fail("no embeddings were produced", ErrNoVectors)
		return
	}

	startID, fallback, err := s.writer.allocate(ctx, s.collection)
	result.IDFallback = fallback
	if err != nil {
		result.fail("could not determine next point id", err)
		return
	}
	result.StartID = startID
	points := buildPoints(startID, items)
	result.advance(StageEmbedded)
	logger.Info("ベクトルを生成しました", "vectors", len(points), "startID", startID, "failed", result.FailedEmbeddings)

	// SCOPE_CLEAR / UPLOAD
	report, err := s.writer.replacer.ReplaceScope(ctx, s.collection, scope, points)
	result.Deleted = report.Delete.Deleted
	result.Residual = report.Delete.Residual
	result.VectorsUploaded = report.Uploaded
	if report.Cleared {
		result.advance(StageScopeCleared)
	}
	if err != nil {
		result.fail("vector store write failed", storeErr(err))
		return
	}
	result.advance(StageUploaded)

	result.TotalVectors = s.writer.totalVectors(ctx, s.collection)
	result.succeed(fmt.Sprintf("Successfully updated %s", describeScope(scope)))
}

func storeErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreWrite, err)
}

func describeScope(scope vectorindex.Scope) string {
	if v, ok := scope.ResourceID.Get(); ok {
		return fmt.Sprintf("resource %d", v)
	}
	if v, ok := scope.ModuleID.Get(); ok {
		return fmt.Sprintf("all resources in module %d", v)
	}
	if v, ok := scope.CourseID.Get(); ok {
		return fmt.Sprintf("entire course %d", v)
	}
	return "all resources"
}

func lockKey(collection string, scope vectorindex.Scope) string {
	// コース単位で排他する
	return fmt.Sprintf("%s:%d", collection, scope.CourseID.OrEmpty())
}
