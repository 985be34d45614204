package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"

	"github.com/jinford/course-rag/internal/core/search"
	"github.com/jinford/course-rag/internal/core/vectorindex"
	"github.com/jinford/course-rag/internal/platform/container"
)

// SearchAction はクエリに近いチャンクを検索するコマンドのアクション。
// --query がなければ対話モードで繰り返し検索する。
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	kind := cmd.String("collection")
	query := cmd.String("query")
	topK := int(cmd.Int("top-k"))
	scope := scopeFromFlags(cmd)

	// 共通コンテキストの初期化（ソースDBは不要）
	appCtx, err := NewAppContext(ctx, envFile, container.FeatureEmbedding)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	svc, err := appCtx.Container.SearchService(kind)
	if err != nil {
		return err
	}

	if query != "" {
		return runSearch(ctx, svc, query, scope, topK)
	}

	fmt.Printf("コレクション %s を検索します（終了: exit / quit / bye）\n", svc.Collection())
	for {
		prompt := promptui.Prompt{
			Label: "クエリ",
		}
		input, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if isExitWord(input) {
			return nil
		}
		if err := runSearch(ctx, svc, input, scope, topK); err != nil {
			slog.Error("検索に失敗しました", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func runSearch(ctx context.Context, svc *search.Service, query string, scope vectorindex.Scope, topK int) error {
	hits, err := svc.Search(ctx, query, scope, topK)
	if err != nil {
		return err
	}
	renderHits(os.Stdout, hits)
	return nil
}

func isExitWord(s string) bool {
	switch strings.ToLower(s) {
	case "exit", "quit", "bye":
		return true
	}
	return false
}

// confirmYES は確認プロンプトを出し、YES と完全一致した場合のみ true を返す
func confirmYES(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label: label,
	}
	input, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, err
	}
	return isConfirmed(input), nil
}

func isConfirmed(input string) bool {
	return strings.TrimSpace(input) == "YES"
}
