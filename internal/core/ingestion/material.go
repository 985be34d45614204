package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/course-rag/internal/core/embedding"
	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// MaterialFields は教材用コレクションでインデックスを張るフィールド
var MaterialFields = []string{vectorindex.FieldCourseID}

// MaterialService は教材 PDF をコース単位でベクトルストアへ同期する
type MaterialService struct {
	reader     DocumentReader
	writer     *indexWriter
	collection string
	logger     *slog.Logger
}

// NewMaterialService は新しいMaterialServiceを作成する
func NewMaterialService(
	reader DocumentReader,
	store vectorindex.Store,
	batcher *embedding.Batcher,
	collection string,
	opts ...SyncServiceOption,
) *MaterialService {
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

	return &MaterialService{
		reader:     reader,
		writer:     newIndexWriter(store, batcher, options.config, options.logger),
		collection: collection,
		logger:     options.logger,
	}
}

// SyncPDF は PDF をページ単位で分割・埋め込みし、コースの教材ベクトルを置き換える。
// 抽出・埋め込みに失敗した場合は既存ベクトルを削除しない。
func (s *MaterialService) SyncPDF(ctx context.Context, courseID int64, pdfPath, bookName string) *SyncResult {
	scope := vectorindex.CourseScope(courseID)
	result := newSyncResult(scope, s.collection)
	logger := s.logger.With("runID", result.RunID.String(), "courseID", courseID, "book", bookName)

	logger.Info("教材同期を開始", "path", pdfPath)

	pages, err := s.reader.ReadPages(ctx, pdfPath)
	if err != nil {
		return s.finish(logger, result.fail("pdf extraction failed", fmt.Errorf("%w: %w", ErrSourceUnavailable, err)))
	}
	result.ResourcesFetched = len(pages)
	if len(pages) == 0 {
		return s.finish(logger, result.fail("pdf has no text pages", ErrEmptyScope))
	}
	result.advance(StageFetched)

	chunks := chunk.SplitPages(courseID, bookName, pages, s.writer.cfg.MaxWords)
	result.advance(StageTransformed)
	if len(chunks) == 0 {
		return s.finish(logger, result.fail("no chunks produced from pdf", ErrTransformInvalid))
	}
	result.ResourcesProcessed = len(pages)
	result.ChunksBuilt = len(chunks)
	result.advance(StageValidated)
	logger.Info("PDFをチャンクに分割しました", "pages", len(pages), "chunks", len(chunks))

	outcomes, err := s.writer.prepare(ctx, s.collection, MaterialFields)
	result.IndexOutcomes = outcomes
	if err != nil {
		return s.finish(logger, result.fail("collection unavailable", err))
	}

	items, failed, err := s.writer.embed(ctx, pageDocuments(chunks))
	result.FailedEmbeddings = failed
	if err != nil {
		return s.finish(logger, result.fail("embedding interrupted", err))
	}
	if len(items) == 0 {
		return s.finish(logger, result.fail("no embeddings were produced", ErrNoVectors))
	}

	startID, fallback, err := s.writer.allocate(ctx, s.collection)
	result.IDFallback = fallback
	if err != nil {
		return s.finish(logger, result.fail("could not determine next point id", err))
	}
	result.StartID = startID
	points := buildPoints(startID, items)
	result.advance(StageEmbedded)

	report, err := s.writer.replacer.ReplaceScope(ctx, s.collection, scope, points)
	result.Deleted = report.Delete.Deleted
	result.Residual = report.Delete.Residual
	result.VectorsUploaded = report.Uploaded
	if report.Cleared {
		result.advance(StageScopeCleared)
	}
	if err != nil {
		return s.finish(logger, result.fail("vector store write failed", storeErr(err)))
	}
	result.advance(StageUploaded)

	result.TotalVectors = s.writer.totalVectors(ctx, s.collection)
	return s.finish(logger, result.succeed(fmt.Sprintf("Successfully updated material %q for course %d", bookName, courseID)))
}

func (s *MaterialService) finish(logger *slog.Logger, result *SyncResult) *SyncResult {
	if result.Success {
		logger.Info("教材同期が完了しました",
			"chunks", result.ChunksBuilt,
			"uploaded", result.VectorsUploaded,
			"deleted", result.Deleted,
			"duration", result.Duration,
		)
	} else {
		logger.Error("教材同期に失敗しました", "stage", result.FailedAt, "reason", result.Reason, "error", result.Err)
	}
	return result
}
