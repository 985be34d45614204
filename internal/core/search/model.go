package search

import "github.com/jinford/course-rag/internal/core/vectorindex"

// Hit は検索・列挙の1件
type Hit struct {
	ID      uint64         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (h Hit) intField(key string) int64 {
	v, _ := vectorindex.PayloadInt(h.Payload, key)
	return v
}

// CourseID はペイロードの course_id を返す
func (h Hit) CourseID() int64 { return h.intField(vectorindex.FieldCourseID) }

// ModuleID はペイロードの module_id を返す
func (h Hit) ModuleID() int64 { return h.intField(vectorindex.FieldModuleID) }

// ResourceID はペイロードの resource_id を返す
func (h Hit) ResourceID() int64 { return h.intField(vectorindex.FieldResourceID) }

// ChunkIndex はペイロードの chunk_index を返す
func (h Hit) ChunkIndex() int64 { return h.intField("chunk_index") }

// Page は教材チャンクのページ番号を返す
func (h Hit) Page() int64 { return h.intField("page") }

// Str は文字列ペイロードを返す
func (h Hit) Str(key string) string {
	return vectorindex.PayloadString(h.Payload, key)
}

// ChunkSummary は列挙結果の集計
type ChunkSummary struct {
	Total      int
	ByType     map[string]int
	ByResource map[int64]int
}

// Summarize は種別ごと・リソースごとの件数を集計する
func Summarize(hits []Hit) ChunkSummary {
	s := ChunkSummary{
		Total:      len(hits),
		ByType:     make(map[string]int),
		ByResource: make(map[int64]int),
	}
	for _, h := range hits {
		if t := h.Str("chunk_type"); t != "" {
			s.ByType[t]++
		}
		if _, ok := h.Payload[vectorindex.FieldResourceID]; ok {
			s.ByResource[h.ResourceID()]++
		}
	}
	return s
}
