package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/course-rag/internal/platform/container"
)

// SyncResourceAction はスコープ内のリソースを再埋め込みしてベクトルを置き換えるコマンドのアクション
func SyncResourceAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	scope := scopeFromFlags(cmd)
	if err := scope.ValidateForWrite(); err != nil {
		return err
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureAll)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("リソース同期を開始", scope.LogAttrs()...)

	result := appCtx.Container.SyncService.SyncScope(ctx, scope)
	renderSyncResult(os.Stdout, result)

	if !result.Success {
		slog.Error("リソース同期に失敗しました", "failedAt", result.FailedAt, "reason", result.Reason, "error", result.Err)
		return fmt.Errorf("同期に失敗しました: %s", result.Message)
	}
	return nil
}

// SyncMaterialAction は教材 PDF をコース単位で同期するコマンドのアクション
func SyncMaterialAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	courseID := cmd.Int64(flagCourseID)
	pdfPath := cmd.String("pdf")
	bookName := cmd.String("book-name")
	if bookName == "" {
		bookName = bookNameFromPath(pdfPath)
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureEmbedding)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("教材同期を開始", "courseID", courseID, "pdf", pdfPath, "bookName", bookName)

	result := appCtx.Container.MaterialService.SyncPDF(ctx, courseID, pdfPath, bookName)
	renderSyncResult(os.Stdout, result)

	if !result.Success {
		slog.Error("教材同期に失敗しました", "failedAt", result.FailedAt, "reason", result.Reason, "error", result.Err)
		return fmt.Errorf("同期に失敗しました: %s", result.Message)
	}
	return nil
}

// bookNameFromPath は拡張子を除いたファイル名を書籍名にする
func bookNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
