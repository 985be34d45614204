package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/course-rag/internal/platform/container"
)

// BatchExportAction はリソースを正規化して中間 JSON に書き出すコマンドのアクション
func BatchExportAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	output := cmd.String("output")
	scope := scopeFromFlags(cmd)

	// 共通コンテキストの初期化（埋め込みは不要）
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureSource)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("リソースの書き出しを開始", append(scope.LogAttrs(), "output", output)...)

	result, err := appCtx.Container.BatchService.Export(ctx, scope, output)
	if err != nil {
		slog.Error("リソースの書き出しに失敗しました", "error", err)
		return err
	}

	slog.Info("リソースの書き出しが完了しました",
		"path", result.Path,
		"fetched", result.Fetched,
		"exported", result.Exported,
		"skipped", result.Skipped,
	)
	return nil
}

// BatchLoadAction は中間 JSON を読み込んでベクトルストアへ取り込むコマンドのアクション
func BatchLoadAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	input := cmd.String("input")
	recreate := cmd.Bool("recreate")
	yes := cmd.Bool("yes")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureAll)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	collection := appCtx.Config.VectorStore.VideoCollection
	if recreate && !yes {
		ok, err := confirmYES(fmt.Sprintf("コレクション %s を削除して作り直します。続行するには YES と入力", collection))
		if err != nil {
			return err
		}
		if !ok {
			slog.Info("取り込みを中止しました")
			return nil
		}
	}

	slog.Info("中間ファイルの取り込みを開始", "input", input, "collection", collection, "recreate", recreate)

	result, err := appCtx.Container.BatchService.Load(ctx, input, recreate)
	if err != nil {
		slog.Error("中間ファイルの取り込みに失敗しました", "error", err)
		return err
	}

	slog.Info("中間ファイルの取り込みが完了しました",
		"resources", result.Resources,
		"chunks", result.ChunksBuilt,
		"failedEmbeddings", result.FailedEmbeddings,
		"uploaded", result.VectorsUploaded,
		"startID", result.StartID,
		"totalVectors", result.TotalVectors,
	)
	return nil
}
