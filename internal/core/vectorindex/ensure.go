package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// IndexStatus はペイロードインデックス作成の結果
type IndexStatus string

const (
	IndexCreated        IndexStatus = "created"
	IndexAlreadyPresent IndexStatus = "already_present"
	IndexFailed         IndexStatus = "failed"
)

// IndexOutcome はフィールドごとのインデックス作成結果
type IndexOutcome struct {
	Field  string
	Status IndexStatus
	Err    error
}

// ScopeFields はリソース用コレクションでインデックスを張る整数フィールド
var ScopeFields = []string{FieldCourseID, FieldModuleID, FieldResourceID}

// EnsureFieldIndexes は各フィールドに整数インデックスを作成する。
// 失敗はログに残して結果に含め、呼び出し元には返さない。
func EnsureFieldIndexes(ctx context.Context, store Store, collection string, fields []string, logger *slog.Logger) []IndexOutcome {
	if logger == nil {
		logger = slog.Default()
	}

	outcomes := make([]IndexOutcome, 0, len(fields))
	for _, field := range fields {
		err := store.CreateFieldIndex(ctx, collection, field, FieldTypeInteger)
		switch {
		case err == nil:
			logger.Info("ペイロードインデックスを作成しました", "collection", collection, "field", field)
			outcomes = append(outcomes, IndexOutcome{Field: field, Status: IndexCreated})
		case errors.Is(err, ErrAlreadyExists):
			logger.Debug("ペイロードインデックスは既に存在します", "collection", collection, "field", field)
			outcomes = append(outcomes, IndexOutcome{Field: field, Status: IndexAlreadyPresent})
		default:
			logger.Warn("ペイロードインデックスの作成に失敗しました", "collection", collection, "field", field, "error", err)
			outcomes = append(outcomes, IndexOutcome{Field: field, Status: IndexFailed, Err: err})
		}
	}
	return outcomes
}

// EnsureCollection はコレクションがなければ作成する。作成した場合は true を返す。
func EnsureCollection(ctx context.Context, store Store, collection string, vectorSize int, distance Distance) (bool, error) {
	exists, err := store.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := store.CreateCollection(ctx, collection, vectorSize, distance); err != nil {
		return false, fmt.Errorf("failed to create collection: %w", err)
	}
	return true, nil
}

// RecreateCollection はコレクションを削除してから作り直す
func RecreateCollection(ctx context.Context, store Store, collection string, vectorSize int, distance Distance) error {
	exists, err := store.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := store.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}
	if err := store.CreateCollection(ctx, collection, vectorSize, distance); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}
