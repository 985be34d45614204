package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jinford/course-rag/internal/core/ingestion"
	"github.com/jinford/course-rag/internal/core/search"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

const previewRunes = 80

// renderSyncResult は同期結果を表示します
func renderSyncResult(w io.Writer, result *ingestion.SyncResult) {
	fmt.Fprintf(w, "\n=== 同期結果 ===\n\n")

	table := tablewriter.NewWriter(w)
	table.Header("項目", "値")
	table.Append("Run ID", result.RunID.String())
	table.Append("コレクション", result.Collection)
	table.Append("スコープ", result.Scope.String())
	if result.Success {
		table.Append("結果", "成功")
	} else {
		table.Append("結果", "失敗")
		table.Append("失敗ステージ", string(result.FailedAt))
		table.Append("理由", result.Reason)
	}
	table.Append("メッセージ", result.Message)
	table.Append("取得リソース数", fmt.Sprintf("%d", result.ResourcesFetched))
	table.Append("処理リソース数", fmt.Sprintf("%d", result.ResourcesProcessed))
	table.Append("スキップ数", fmt.Sprintf("%d", result.ResourcesSkipped))
	table.Append("チャンク数", fmt.Sprintf("%d", result.ChunksBuilt))
	table.Append("埋め込み失敗数", fmt.Sprintf("%d", result.FailedEmbeddings))
	table.Append("削除ベクトル数", fmt.Sprintf("%d", result.Deleted))
	table.Append("登録ベクトル数", fmt.Sprintf("%d", result.VectorsUploaded))
	table.Append("開始ID", startIDLabel(result))
	if result.Success {
		table.Append("コレクション総数", fmt.Sprintf("%d", result.TotalVectors))
	}
	table.Append("所要時間", result.Duration.String())
	table.Render()

	if len(result.IndexOutcomes) > 0 {
		renderIndexOutcomes(w, result.IndexOutcomes)
	}
}

func startIDLabel(result *ingestion.SyncResult) string {
	if result.IDFallback {
		return fmt.Sprintf("%d (フォールバック)", result.StartID)
	}
	return fmt.Sprintf("%d", result.StartID)
}

// renderIndexOutcomes はペイロードインデックスの作成結果を表示します
func renderIndexOutcomes(w io.Writer, outcomes []vectorindex.IndexOutcome) {
	table := tablewriter.NewWriter(w)
	table.Header("フィールド", "状態", "エラー")
	for _, o := range outcomes {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		table.Append(o.Field, string(o.Status), errText)
	}
	table.Render()
}

// renderHits は検索結果を表示します
func renderHits(w io.Writer, hits []search.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "該当するチャンクはありません")
		return
	}

	for i, h := range hits {
		fmt.Fprintf(w, "\n[%d] score=%.4f id=%d\n", i+1, h.Score, h.ID)
		fmt.Fprintf(w, "    %s\n", hitLocation(h))
		if topic := h.Str("topic_title"); topic != "" {
			fmt.Fprintf(w, "    %s / %s\n", topic, h.Str("subtopic_title"))
		}
		fmt.Fprintf(w, "    %s\n", preview(h.Str("text"), previewRunes*3))
	}
}

func hitLocation(h search.Hit) string {
	if book := h.Str("book_name"); book != "" {
		return fmt.Sprintf("course=%d book=%s page=%d", h.CourseID(), book, h.Page())
	}
	return fmt.Sprintf("course=%d module=%d resource=%d chunk=%d (%s)",
		h.CourseID(), h.ModuleID(), h.ResourceID(), h.ChunkIndex(), h.Str("chunk_type"))
}

// renderChunkTable はチャンク一覧をテーブル形式で表示します
func renderChunkTable(w io.Writer, hits []search.Hit) {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Course", "Module", "Resource", "Index", "Type", "Text")
	for _, h := range hits {
		table.Append(
			fmt.Sprintf("%d", h.ID),
			fmt.Sprintf("%d", h.CourseID()),
			fmt.Sprintf("%d", h.ModuleID()),
			fmt.Sprintf("%d", h.ResourceID()),
			fmt.Sprintf("%d", h.ChunkIndex()),
			h.Str("chunk_type"),
			preview(h.Str("text"), previewRunes),
		)
	}
	table.Render()
}

// renderChunkSummary は種別ごと・リソースごとの件数を表示します
func renderChunkSummary(w io.Writer, summary search.ChunkSummary) {
	fmt.Fprintf(w, "\n合計: %d チャンク\n", summary.Total)

	if len(summary.ByType) > 0 {
		types := make([]string, 0, len(summary.ByType))
		for t := range summary.ByType {
			types = append(types, t)
		}
		sort.Strings(types)

		table := tablewriter.NewWriter(w)
		table.Header("種別", "件数")
		for _, t := range types {
			table.Append(t, fmt.Sprintf("%d", summary.ByType[t]))
		}
		table.Render()
	}

	if len(summary.ByResource) > 0 {
		ids := make([]int64, 0, len(summary.ByResource))
		for id := range summary.ByResource {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		table := tablewriter.NewWriter(w)
		table.Header("リソースID", "件数")
		for _, id := range ids {
			table.Append(fmt.Sprintf("%d", id), fmt.Sprintf("%d", summary.ByResource[id]))
		}
		table.Render()
	}
}

// renderDeleteReport は削除結果を表示します
func renderDeleteReport(w io.Writer, scope vectorindex.Scope, report vectorindex.DeleteReport) {
	table := tablewriter.NewWriter(w)
	table.Header("スコープ", "削除前", "削除数", "残存数")
	table.Append(
		scope.String(),
		fmt.Sprintf("%d", report.Before),
		fmt.Sprintf("%d", report.Deleted),
		fmt.Sprintf("%d", report.Residual),
	)
	table.Render()
}

// preview は改行を詰めて先頭 n 文字に切り詰める
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
