package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jinford/course-rag/internal/core/embedding"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

const (
	// DefaultTopK は検索結果のデフォルト件数
	DefaultTopK    = 5
	scrollPageSize = 100
)

// Service はコレクションに対する類似検索と列挙を提供する
type Service struct {
	store      vectorindex.Store
	embedder   embedding.Embedder
	collection string
	logger     *slog.Logger
}

// NewService は新しいServiceを作成する
func NewService(store vectorindex.Store, embedder embedding.Embedder, collection string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		embedder:   embedder,
		collection: collection,
		logger:     logger,
	}
}

// Collection は対象コレクション名を返す
func (s *Service) Collection() string {
	return s.collection
}

// Search はクエリを検索用モードで埋め込み、スコープで絞り込んだ上位 topK 件を返す。
// スコープはどのフィールドの組み合わせでもよい。
func (s *Service) Search(ctx context.Context, query string, scope vectorindex.Scope, topK int) ([]Hit, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := embedding.EmbedOne(ctx, s.embedder, query, embedding.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	points, err := s.store.Query(ctx, s.collection, vector, scope.Filter(), topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, len(points))
	for i, p := range points {
		hits[i] = Hit{ID: p.ID, Score: p.Score, Payload: p.Payload}
	}
	s.logger.Debug("検索が完了しました", "collection", s.collection, "hits", len(hits))
	return hits, nil
}

// ListChunks はスコープに一致する全チャンクを (course, module, resource, chunk_index) 順で返す
func (s *Service) ListChunks(ctx context.Context, scope vectorindex.Scope) ([]Hit, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	filter := scope.Filter()

	total, err := s.store.Count(ctx, s.collection, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, total)
	var offset *uint64
	for {
		page, err := s.store.Scroll(ctx, s.collection, vectorindex.ScrollRequest{
			Filter:      filter,
			Offset:      offset,
			Limit:       scrollPageSize,
			WithPayload: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}
		for _, p := range page.Points {
			hits = append(hits, Hit{ID: p.ID, Payload: p.Payload})
		}
		if page.NextOffset == nil {
			break
		}
		offset = page.NextOffset
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.CourseID() != b.CourseID() {
			return a.CourseID() < b.CourseID()
		}
		if a.ModuleID() != b.ModuleID() {
			return a.ModuleID() < b.ModuleID()
		}
		if a.ResourceID() != b.ResourceID() {
			return a.ResourceID() < b.ResourceID()
		}
		return a.ChunkIndex() < b.ChunkIndex()
	})
	return hits, nil
}

// Count はスコープに一致するチャンク数を返す
func (s *Service) Count(ctx context.Context, scope vectorindex.Scope) (uint64, error) {
	return vectorindex.NewScopeDeleter(s.store, s.logger).Count(ctx, s.collection, scope)
}

// DeleteScope はスコープに一致するチャンクを削除する
func (s *Service) DeleteScope(ctx context.Context, scope vectorindex.Scope) (vectorindex.DeleteReport, error) {
	return vectorindex.NewScopeDeleter(s.store, s.logger).DeleteScope(ctx, s.collection, scope)
}
