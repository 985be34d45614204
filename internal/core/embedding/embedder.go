package embedding

import "context"

// Mode は Embedding の用途 (保存用 / 検索クエリ用)
type Mode string

const (
	ModeDocument Mode = "document"
	ModeQuery    Mode = "query"
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// EmbedBatch は入力と同じ順序・件数のベクトルを返す
	EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	ModelName() string
	Dimension() int
	MaxBatchSize() int
}

// EmbedOne は単一テキストの Embedding を生成する
func EmbedOne(ctx context.Context, e Embedder, text string, mode Mode) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, mode)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, &CountMismatchError{Want: 1, Got: len(vectors)}
	}
	return vectors[0], nil
}
