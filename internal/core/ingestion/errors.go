package ingestion

import (
	"errors"

	"github.com/jinford/course-rag/internal/core/vectorindex"
)

var (
	// ErrSourceUnavailable はソースDBから取得できなかった場合のエラー
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrEmptyScope は指定スコープにデータがない場合のエラー
	ErrEmptyScope = errors.New("no data")
	// ErrTransformInvalid は正規化後に有効なデータが残らなかった場合のエラー
	ErrTransformInvalid = errors.New("no valid data")
	// ErrNoVectors は1件もベクトルを生成できなかった場合のエラー
	ErrNoVectors = errors.New("no vectors produced")
	// ErrIDAllocation は点IDを決定できなかった場合のエラー (厳格モードのみ)
	ErrIDAllocation = errors.New("point id allocation failed")
	// ErrStoreWrite はベクトルストアへの書き込みに失敗した場合のエラー
	ErrStoreWrite = errors.New("vector store write failed")
	// ErrEmbedderUnavailable は埋め込みなしで構成されたサービスで埋め込みが必要になった場合のエラー
	ErrEmbedderUnavailable = errors.New("embedder is not configured")
	// ErrInvalidScope はスコープ指定が不正な場合のエラー
	ErrInvalidScope = vectorindex.ErrInvalidScope
)
