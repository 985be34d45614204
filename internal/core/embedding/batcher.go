package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultBatchSize はEmbedding APIのデフォルトバッチサイズ
	DefaultBatchSize = 100
	// DefaultBatchDelay はバッチ間の待機時間 (最後のバッチの後には待たない)
	DefaultBatchDelay = time.Second
	// MinBatchSize は MaxBatchSize() が0を返した場合のフォールバック
	MinBatchSize = 1
)

// CountMismatchError はEmbedderが返したベクトル数が入力と一致しない場合のエラー
type CountMismatchError struct {
	Want int
	Got  int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("embedding count mismatch: want %d, got %d", e.Want, e.Got)
}

// DimensionMismatchError はベクトル次元が想定と異なる場合のエラー
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Vector は1テキスト分の結果。Err が nil でなければ失敗マーカー。
type Vector struct {
	Values []float32
	Err    error
}

// OK はベクトル生成に成功したかを返す
func (v Vector) OK() bool {
	return v.Err == nil && v.Values != nil
}

// BatchStats はバッチ処理の統計
type BatchStats struct {
	Batches       int
	FailedBatches int
	Succeeded     int
	FailedItems   int
	BatchSize     int
	TotalLatency  time.Duration
}

// Batcher はテキスト列を固定サイズのバッチに分けてEmbeddingを生成する
type Batcher struct {
	embedder  Embedder
	batchSize int
	delay     time.Duration
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// BatcherOption は Batcher のオプション
type BatcherOption func(*Batcher)

// WithBatchSize はバッチサイズを設定する (Embedder.MaxBatchSize() でクリップされる)
func WithBatchSize(size int) BatcherOption {
	return func(b *Batcher) {
		b.batchSize = size
	}
}

// WithBatchDelay はバッチ間の待機時間を設定する
func WithBatchDelay(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		b.delay = d
	}
}

// WithBatcherLogger はロガーを設定する
func WithBatcherLogger(logger *slog.Logger) BatcherOption {
	return func(b *Batcher) {
		b.logger = logger
	}
}

// WithSleeper は待機処理を差し替える (テスト用)
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) BatcherOption {
	return func(b *Batcher) {
		b.sleep = sleep
	}
}

// NewBatcher は新しい Batcher を作成する
func NewBatcher(embedder Embedder, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		delay:     DefaultBatchDelay,
		logger:    slog.Default(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	maxBatchSize := embedder.MaxBatchSize()
	if maxBatchSize <= 0 {
		b.logger.Warn("Embedder.MaxBatchSize()が無効な値を返しました。フォールバック値を使用します",
			"returned", maxBatchSize,
			"fallback", MinBatchSize,
		)
		maxBatchSize = MinBatchSize
	}
	if b.batchSize > maxBatchSize {
		b.logger.Info("バッチサイズをEmbedderの最大値でクリップ",
			"configured", b.batchSize,
			"max", maxBatchSize,
		)
		b.batchSize = maxBatchSize
	}
	if b.batchSize <= 0 {
		b.batchSize = MinBatchSize
	}
	return b
}

// BatchSize は実際に使用するバッチサイズを返す
func (b *Batcher) BatchSize() int {
	return b.batchSize
}

// EmbedDocuments は保存用 (ModeDocument) のベクトルを生成する。
// 戻り値は入力と同じ長さ・順序。バッチ単位の失敗はそのバッチの全要素に記録され、
// 他のバッチは処理を続ける。error を返すのはコンテキストがキャンセルされた場合のみ。
func (b *Batcher) EmbedDocuments(ctx context.Context, texts []string) ([]Vector, BatchStats, error) {
	return b.Embed(ctx, texts, ModeDocument)
}

// Embed は指定モードでベクトルを生成する
func (b *Batcher) Embed(ctx context.Context, texts []string, mode Mode) ([]Vector, BatchStats, error) {
	stats := BatchStats{BatchSize: b.batchSize}
	results := make([]Vector, len(texts))
	dim := b.embedder.Dimension()

	for start := 0; start < len(texts); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		end := min(start+b.batchSize, len(texts))
		batch := texts[start:end]
		stats.Batches++

		began := time.Now()
		vectors, err := b.embedder.EmbedBatch(ctx, batch, mode)
		stats.TotalLatency += time.Since(began)

		if err == nil {
			err = validateBatch(vectors, len(batch), dim)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stats, ctxErr
			}
			b.logger.Warn("Embeddingバッチの生成に失敗しました",
				"batch", stats.Batches,
				"offset", start,
				"size", len(batch),
				"error", err,
			)
			for i := start; i < end; i++ {
				results[i] = Vector{Err: err}
			}
			stats.FailedBatches++
			stats.FailedItems += len(batch)
		} else {
			for i, v := range vectors {
				results[start+i] = Vector{Values: v}
			}
			stats.Succeeded += len(batch)
		}

		if end < len(texts) && b.delay > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				return nil, stats, err
			}
		}
	}

	b.logger.Debug("Embedding生成が完了しました",
		"total", len(texts),
		"succeeded", stats.Succeeded,
		"failed", stats.FailedItems,
		"batches", stats.Batches,
	)
	return results, stats, nil
}

func validateBatch(vectors [][]float32, want, dim int) error {
	if len(vectors) != want {
		return &CountMismatchError{Want: want, Got: len(vectors)}
	}
	if dim <= 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != dim {
			return &DimensionMismatchError{Want: dim, Got: len(v)}
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
