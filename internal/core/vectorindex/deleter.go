package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
)

// DeleteReport はスコープ削除の結果
type DeleteReport struct {
	Before   uint64
	Deleted  uint64
	Residual uint64
}

// ScopeDeleter はスコープに一致する点を一括削除する
type ScopeDeleter struct {
	store  Store
	logger *slog.Logger
}

// NewScopeDeleter は新しい ScopeDeleter を作成する
func NewScopeDeleter(store Store, logger *slog.Logger) *ScopeDeleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScopeDeleter{store: store, logger: logger}
}

// Count はスコープに一致する点の数を返す
func (d *ScopeDeleter) Count(ctx context.Context, collection string, scope Scope) (uint64, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	n, err := d.store.Count(ctx, collection, scope.Filter())
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// DeleteScope は 件数確認 → 一括削除 → 再確認 の順に実行する。
// 削除後に残存があっても警告のみでエラーにはしない。
// 一致する点がなければ削除を呼ばずに Deleted=0 を返す。
func (d *ScopeDeleter) DeleteScope(ctx context.Context, collection string, scope Scope) (DeleteReport, error) {
	var report DeleteReport
	if err := scope.ValidateForWrite(); err != nil {
		return report, err
	}

	filter := scope.Filter()
	before, err := d.store.Count(ctx, collection, filter)
	if err != nil {
		return report, fmt.Errorf("failed to count points before delete: %w", err)
	}
	report.Before = before

	if before == 0 {
		d.logger.Info("削除対象の点はありません", append([]any{"collection", collection}, scope.LogAttrs()...)...)
		return report, nil
	}

	d.logger.Info("スコープ内の点を削除します", append([]any{"collection", collection, "count", before}, scope.LogAttrs()...)...)
	if err := d.store.Delete(ctx, collection, filter); err != nil {
		return report, fmt.Errorf("failed to delete points: %w", err)
	}

	after, err := d.store.Count(ctx, collection, filter)
	if err != nil {
		d.logger.Warn("削除後の件数確認に失敗しました", "collection", collection, "error", err)
		report.Deleted = before
		return report, nil
	}

	report.Residual = after
	if after > before {
		report.Deleted = 0
	} else {
		report.Deleted = before - after
	}
	if after > 0 {
		d.logger.Warn("削除後もスコープ内に点が残っています",
			append([]any{"collection", collection, "remaining", after}, scope.LogAttrs()...)...)
	} else {
		d.logger.Info("スコープ内の点を削除しました", "collection", collection, "deleted", report.Deleted)
	}
	return report, nil
}
