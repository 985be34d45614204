package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/course-rag/internal/app/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func collectionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "collection",
		Usage: "対象コレクション (video/material)",
		Value: "video",
	}
}

func withScope(flags ...cli.Flag) []cli.Flag {
	return append(flags, appcli.ScopeFlags()...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "course-rag",
		Usage: "コースリソースのベクトルインデックス同期ツール",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "ベクトルインデックス同期コマンド",
				Commands: []*cli.Command{
					{
						Name:   "resource",
						Usage:  "スコープ内のリソースを再埋め込みしてベクトルを置き換え",
						Flags:  withScope(envFlag()),
						Action: appcli.SyncResourceAction,
					},
					{
						Name:  "material",
						Usage: "教材 PDF をページ単位で同期",
						Flags: []cli.Flag{
							envFlag(),
							&cli.Int64Flag{
								Name:     "course-id",
								Usage:    "コースID",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "pdf",
								Usage:    "PDFファイルパス",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "book-name",
								Usage: "書籍名（省略時はファイル名）",
							},
						},
						Action: appcli.SyncMaterialAction,
					},
				},
			},
			{
				Name:  "batch",
				Usage: "中間ファイル経由の一括取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:  "export",
						Usage: "リソースを正規化して中間 JSON に書き出し",
						Flags: withScope(
							envFlag(),
							&cli.StringFlag{
								Name:  "output",
								Usage: "出力ファイルパス",
								Value: "resources.json",
							},
						),
						Action: appcli.BatchExportAction,
					},
					{
						Name:  "load",
						Usage: "中間 JSON を埋め込んでベクトルストアへ登録",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "input",
								Usage: "入力ファイルパス",
								Value: "resources.json",
							},
							&cli.BoolFlag{
								Name:  "recreate",
								Usage: "コレクションを削除して作り直してから登録",
							},
							&cli.BoolFlag{
								Name:  "yes",
								Usage: "確認プロンプトを省略",
							},
						},
						Action: appcli.BatchLoadAction,
					},
				},
			},
			{
				Name:  "collection",
				Usage: "コレクション管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "setup",
						Usage: "コレクションとペイロードインデックスを作成",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "collection",
								Usage: "対象コレクション (video/material/all)",
								Value: "all",
							},
							&cli.BoolFlag{
								Name:  "recreate",
								Usage: "既存コレクションを削除して作り直す",
							},
							&cli.BoolFlag{
								Name:  "yes",
								Usage: "確認プロンプトを省略",
							},
						},
						Action: appcli.CollectionSetupAction,
					},
				},
			},
			{
				Name:  "chunks",
				Usage: "チャンク管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "find",
						Usage: "スコープに一致するチャンクを一覧表示",
						Flags: withScope(
							envFlag(),
							collectionFlag(),
							&cli.BoolFlag{
								Name:  "summary-only",
								Usage: "集計のみ表示",
							},
						),
						Action: appcli.ChunksFindAction,
					},
					{
						Name:  "delete",
						Usage: "スコープに一致するチャンクを削除",
						Flags: withScope(
							envFlag(),
							collectionFlag(),
							&cli.BoolFlag{
								Name:  "yes",
								Usage: "確認プロンプトを省略",
							},
						),
						Action: appcli.ChunksDeleteAction,
					},
				},
			},
			{
				Name:  "search",
				Usage: "クエリに近いチャンクを検索（--query 省略時は対話モード）",
				Flags: withScope(
					envFlag(),
					collectionFlag(),
					&cli.StringFlag{
						Name:  "query",
						Usage: "検索クエリ",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "取得件数",
						Value: 5,
					},
				),
				Action: appcli.SearchAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
