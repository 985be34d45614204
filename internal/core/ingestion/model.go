package ingestion

import (
	"encoding/json"

	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
)

type fieldKind int

const (
	fieldAbsent fieldKind = iota
	fieldRaw
	fieldParsed
)

// JSONField はソースの JSON 列。未設定・未パースの文字列・パース済み値のいずれか。
type JSONField struct {
	kind   fieldKind
	raw    string
	parsed any
}

// AbsentField は値なし (NULL) を表す
func AbsentField() JSONField {
	return JSONField{kind: fieldAbsent}
}

// RawField は未パースの JSON 文字列を表す
func RawField(s string) JSONField {
	return JSONField{kind: fieldRaw, raw: s}
}

// ParsedField はパース済みの値を表す。nil は AbsentField と同じ。
func ParsedField(v any) JSONField {
	if v == nil {
		return AbsentField()
	}
	return JSONField{kind: fieldParsed, parsed: v}
}

// IsAbsent は値がない場合に true を返す
func (f JSONField) IsAbsent() bool {
	return f.kind == fieldAbsent
}

// Decode は値を JSON として解釈する。パースできない文字列は (nil, false)。
func (f JSONField) Decode() (any, bool) {
	switch f.kind {
	case fieldRaw:
		var v any
		if err := json.Unmarshal([]byte(f.raw), &v); err != nil {
			return nil, false
		}
		return v, v != nil
	case fieldParsed:
		return f.parsed, true
	default:
		return nil, false
	}
}

// SourceRecord はリレーショナルソースから取得したままの1行
type SourceRecord struct {
	CourseID   int64
	ModuleID   *int64
	ResourceID int64
	Summary    JSONField
	Chapters   JSONField
}

// Resource は正規化済みのリソース。中間 JSON ファイルの要素でもある。
type Resource struct {
	CourseID   int64           `json:"course_id"`
	ModuleID   int64           `json:"module_id"`
	ResourceID int64           `json:"resource_id"`
	Summary    string          `json:"summary"`
	Chapters   *chunk.Chapters `json:"chapters"`
}

// Chunks は要約 (index 0) と章チャンク (index 1..N) を生成する
func (r Resource) Chunks(maxWords int) []chunk.Chunk {
	return chunk.BuildResourceChunks(r.CourseID, r.ModuleID, r.ResourceID, r.Summary, r.Chapters, maxWords)
}
