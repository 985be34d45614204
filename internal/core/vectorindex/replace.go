package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultUpsertBatchSize はアップロード1回あたりの点数
const DefaultUpsertBatchSize = 100

// ReplaceReport はスコープ置換の結果
type ReplaceReport struct {
	Delete   DeleteReport
	Cleared  bool
	Uploaded int
	Batches  int
}

// Replacer はスコープ内の点を削除してから新しい点を書き込む。
// 削除とアップロードはアトミックではなく、途中で失敗するとスコープが空のまま残り得る。
type Replacer struct {
	store     Store
	deleter   *ScopeDeleter
	batchSize int
	logger    *slog.Logger
}

// ReplacerOption は Replacer のオプション
type ReplacerOption func(*Replacer)

// WithUpsertBatchSize はアップロードのバッチサイズを設定する
func WithUpsertBatchSize(size int) ReplacerOption {
	return func(r *Replacer) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithReplacerLogger はロガーを設定する
func WithReplacerLogger(logger *slog.Logger) ReplacerOption {
	return func(r *Replacer) {
		r.logger = logger
	}
}

// NewReplacer は新しい Replacer を作成する
func NewReplacer(store Store, opts ...ReplacerOption) *Replacer {
	r := &Replacer{
		store:     store,
		batchSize: DefaultUpsertBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.deleter = NewScopeDeleter(store, r.logger)
	return r
}

// ReplaceScope はスコープを削除してから points をバッチでアップロードする
func (r *Replacer) ReplaceScope(ctx context.Context, collection string, scope Scope, points []Point) (ReplaceReport, error) {
	var report ReplaceReport

	deleted, err := r.deleter.DeleteScope(ctx, collection, scope)
	report.Delete = deleted
	if err != nil {
		return report, err
	}
	report.Cleared = true

	uploaded, batches, err := r.Upload(ctx, collection, points)
	report.Uploaded = uploaded
	report.Batches = batches
	return report, err
}

// Upload は points をバッチに分けて書き込む
func (r *Replacer) Upload(ctx context.Context, collection string, points []Point) (int, int, error) {
	total := (len(points) + r.batchSize - 1) / r.batchSize
	uploaded := 0
	for i, start := 0, 0; start < len(points); i, start = i+1, start+r.batchSize {
		end := min(start+r.batchSize, len(points))
		if err := r.store.Upsert(ctx, collection, points[start:end]); err != nil {
			return uploaded, i, fmt.Errorf("failed to upsert batch %d/%d: %w", i+1, total, err)
		}
		uploaded += end - start
		r.logger.Info("バッチをアップロードしました", "batch", i+1, "total", total, "points", end-start)
	}
	return uploaded, total, nil
}
