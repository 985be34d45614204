package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/course-rag/internal/core/vectorindex"
	"github.com/jinford/course-rag/internal/platform/config"
	"github.com/jinford/course-rag/internal/platform/container"
	"github.com/jinford/course-rag/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer
}

// NewAppContext は設定ファイルを読み込み、必要な外部依存に接続して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string, features container.Feature) (*AppContext, error) {
	// 設定の読み込み
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	// ロガーの初期化
	appLogger := logger.New(logger.ParseConfig(cfg.Log.Level, cfg.Log.Format))

	// コンテナの初期化
	cont, err := container.NewContainer(ctx, cfg,
		container.WithContainerLogger(appLogger),
		container.WithFeatures(features),
	)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}

// スコープ指定フラグ名
const (
	flagCourseID   = "course-id"
	flagModuleID   = "module-id"
	flagResourceID = "resource-id"
)

// ScopeFlags はスコープ指定に使うフラグを返す
func ScopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:  flagCourseID,
			Usage: "コースID",
		},
		&cli.Int64Flag{
			Name:  flagModuleID,
			Usage: "モジュールID（--course-id と併用）",
		},
		&cli.Int64Flag{
			Name:  flagResourceID,
			Usage: "リソースID（--module-id と併用）",
		},
	}
}

// scopeFromFlags は指定されたフラグだけを持つスコープを組み立てる
func scopeFromFlags(cmd *cli.Command) vectorindex.Scope {
	var courseID, moduleID, resourceID *int64
	if cmd.IsSet(flagCourseID) {
		v := cmd.Int64(flagCourseID)
		courseID = &v
	}
	if cmd.IsSet(flagModuleID) {
		v := cmd.Int64(flagModuleID)
		moduleID = &v
	}
	if cmd.IsSet(flagResourceID) {
		v := cmd.Int64(flagResourceID)
		resourceID = &v
	}
	return vectorindex.ScopeFromPtrs(courseID, moduleID, resourceID)
}
