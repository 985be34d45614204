package ingestion

import (
	"log/slog"

	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
)

// TransformStats は正規化の統計
type TransformStats struct {
	Input        int
	Kept         int
	SkippedNull  int
	SkippedEmpty int
}

// Normalize はソース行を Resource に変換する。
// summary は {"content": ...} の content 文字列を取り出し、chapters は Topics 構造に変換する。
// 両方とも空の行と module_id が NULL の行は除外する。
func Normalize(records []SourceRecord, logger *slog.Logger) ([]Resource, TransformStats) {
	if logger == nil {
		logger = slog.Default()
	}

	stats := TransformStats{Input: len(records)}
	resources := make([]Resource, 0, len(records))
	for _, rec := range records {
		if rec.ModuleID == nil {
			logger.Warn("module_id が NULL のリソースを除外します",
				"courseID", rec.CourseID,
				"resourceID", rec.ResourceID,
			)
			stats.SkippedNull++
			continue
		}

		summary := normalizeSummary(rec.Summary)
		chapters := normalizeChapters(rec.Chapters)
		if summary == "" && chapters.IsEmpty() {
			logger.Debug("要約と章構成が空のリソースを除外します", "resourceID", rec.ResourceID)
			stats.SkippedEmpty++
			continue
		}

		resources = append(resources, Resource{
			CourseID:   rec.CourseID,
			ModuleID:   *rec.ModuleID,
			ResourceID: rec.ResourceID,
			Summary:    summary,
			Chapters:   chapters,
		})
	}
	stats.Kept = len(resources)
	return resources, stats
}

func normalizeSummary(f JSONField) string {
	v, ok := f.Decode()
	if !ok {
		return ""
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	content, _ := m["content"].(string)
	return content
}

func normalizeChapters(f JSONField) *chunk.Chapters {
	v, ok := f.Decode()
	if !ok {
		return nil
	}
	chapters, ok := chunk.DecodeChapters(v)
	if !ok || chapters.IsEmpty() {
		return nil
	}
	return chapters
}
