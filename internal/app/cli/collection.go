package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/course-rag/internal/core/ingestion"
	"github.com/jinford/course-rag/internal/core/vectorindex"
	"github.com/jinford/course-rag/internal/platform/container"
)

// collectionTarget はセットアップ対象のコレクションと索引フィールド
type collectionTarget struct {
	kind   string
	name   string
	fields []string
}

// CollectionSetupAction はコレクションとペイロードインデックスを用意するコマンドのアクション
func CollectionSetupAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	kind := cmd.String("collection")
	recreate := cmd.Bool("recreate")
	yes := cmd.Bool("yes")

	// 共通コンテキストの初期化（ベクトルストアのみ）
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureNone)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	targets, err := collectionTargets(kind,
		appCtx.Config.VectorStore.VideoCollection,
		appCtx.Config.VectorStore.MaterialCollection,
	)
	if err != nil {
		return err
	}

	store := appCtx.Container.Store
	size := appCtx.Config.Embedding.Dimension
	for _, target := range targets {
		slog.Info("コレクションのセットアップを開始", "collection", target.name, "recreate", recreate)

		if recreate {
			if !yes {
				ok, err := confirmYES(fmt.Sprintf("コレクション %s を削除して作り直します。続行するには YES と入力", target.name))
				if err != nil {
					return err
				}
				if !ok {
					slog.Info("再作成をスキップしました", "collection", target.name)
					continue
				}
			}
			if err := vectorindex.RecreateCollection(ctx, store, target.name, size, vectorindex.DistanceCosine); err != nil {
				return fmt.Errorf("コレクション %s の再作成に失敗しました: %w", target.name, err)
			}
			slog.Info("コレクションを再作成しました", "collection", target.name)
		} else {
			created, err := vectorindex.EnsureCollection(ctx, store, target.name, size, vectorindex.DistanceCosine)
			if err != nil {
				return fmt.Errorf("コレクション %s の作成に失敗しました: %w", target.name, err)
			}
			if created {
				slog.Info("コレクションを作成しました", "collection", target.name, "size", size)
			} else {
				slog.Info("コレクションは既に存在します", "collection", target.name)
			}
		}

		outcomes := vectorindex.EnsureFieldIndexes(ctx, store, target.name, target.fields, appCtx.Logger())
		fmt.Printf("\n=== %s (%s) ===\n", target.name, target.kind)
		renderIndexOutcomes(os.Stdout, outcomes)

		info, err := store.CollectionInfo(ctx, target.name)
		if err != nil {
			slog.Warn("コレクション情報の取得に失敗しました", "collection", target.name, "error", err)
			continue
		}
		renderCollectionInfo(info)
	}
	return nil
}

func collectionTargets(kind, video, material string) ([]collectionTarget, error) {
	videoTarget := collectionTarget{kind: "video", name: video, fields: vectorindex.ScopeFields}
	materialTarget := collectionTarget{kind: "material", name: material, fields: ingestion.MaterialFields}
	switch kind {
	case "", "all":
		return []collectionTarget{videoTarget, materialTarget}, nil
	case "video":
		return []collectionTarget{videoTarget}, nil
	case "material":
		return []collectionTarget{materialTarget}, nil
	default:
		return nil, fmt.Errorf("無効な collection: %s (video|material|all)", kind)
	}
}

// renderCollectionInfo はコレクションの概要を表示します
func renderCollectionInfo(info *vectorindex.CollectionInfo) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("コレクション", "ベクトル数", "次元", "距離")
	table.Append(info.Name, fmt.Sprintf("%d", info.PointCount), fmt.Sprintf("%d", info.VectorSize), string(info.Distance))
	table.Render()
}
