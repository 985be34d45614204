package ingestion

import (
	"context"

	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// SourceRepository はコースリソースの取得元
type SourceRepository interface {
	// FetchResources はスコープに一致するリソース行を返す。空スコープは全件。
	FetchResources(ctx context.Context, scope vectorindex.Scope) ([]SourceRecord, error)
}

// DocumentReader は PDF 等の文書からページ単位のテキストを読み出す
type DocumentReader interface {
	// ReadPages は空白のみのページを除いたページ列を返す
	ReadPages(ctx context.Context, path string) ([]chunk.Page, error)
}

// ResourceFile は正規化済みリソースを保存する中間ファイル
type ResourceFile interface {
	Write(path string, resources []Resource) error
	Read(path string) ([]Resource, error)
}

// ScopeLocker は同一スコープへの同時書き込みを防ぐ
type ScopeLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
