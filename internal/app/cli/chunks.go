package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/course-rag/internal/core/search"
	"github.com/jinford/course-rag/internal/platform/container"
)

// ChunksFindAction はスコープに一致するチャンクを一覧表示するコマンドのアクション
func ChunksFindAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	kind := cmd.String("collection")
	summaryOnly := cmd.Bool("summary-only")
	scope := scopeFromFlags(cmd)
	if err := scope.Validate(); err != nil {
		return err
	}

	// 共通コンテキストの初期化（ベクトルストアのみ）
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureNone)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	svc, err := appCtx.Container.SearchService(kind)
	if err != nil {
		return err
	}

	slog.Info("チャンク検索を開始", append(scope.LogAttrs(), "collection", svc.Collection())...)

	hits, err := svc.ListChunks(ctx, scope)
	if err != nil {
		slog.Error("チャンクの取得に失敗しました", "error", err)
		return err
	}
	if len(hits) == 0 {
		fmt.Println("該当するチャンクはありません")
		return nil
	}

	if !summaryOnly {
		renderChunkTable(os.Stdout, hits)
	}
	renderChunkSummary(os.Stdout, search.Summarize(hits))
	return nil
}

// ChunksDeleteAction はスコープに一致するチャンクを確認の上で削除するコマンドのアクション
func ChunksDeleteAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	kind := cmd.String("collection")
	yes := cmd.Bool("yes")
	scope := scopeFromFlags(cmd)
	if err := scope.ValidateForWrite(); err != nil {
		return err
	}

	// 共通コンテキストの初期化（ベクトルストアのみ）
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureNone)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	svc, err := appCtx.Container.SearchService(kind)
	if err != nil {
		return err
	}

	count, err := svc.Count(ctx, scope)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("削除対象のチャンクはありません")
		return nil
	}

	fmt.Printf("コレクション %s の %s に一致するチャンク %d 件を削除します\n", svc.Collection(), scope.String(), count)
	if !yes {
		ok, err := confirmYES("続行するには YES と入力")
		if err != nil {
			return err
		}
		if !ok {
			slog.Info("削除を中止しました")
			return nil
		}
	}

	report, err := svc.DeleteScope(ctx, scope)
	if err != nil {
		slog.Error("チャンクの削除に失敗しました", "error", err)
		return err
	}
	renderDeleteReport(os.Stdout, scope, report)

	if report.Residual > 0 {
		slog.Warn("削除後もチャンクが残っています", "residual", report.Residual)
	} else {
		slog.Info("チャンクの削除が完了しました", "deleted", report.Deleted)
	}
	return nil
}
