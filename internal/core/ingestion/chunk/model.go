package chunk

import "fmt"

// DefaultMaxWords はチャンク1件あたりの最大語数
const DefaultMaxWords = 250

// Type はチャンク種別
type Type string

const (
	TypeSummary Type = "summary"
	TypeChapter Type = "chapter"
)

// Chapters はリソースの章構成 (Topics → Sub-topics) を表す
type Chapters struct {
	Topics []Topic `json:"Topics"`
}

// Topic は章構成のトピック
type Topic struct {
	Title     string     `json:"title"`
	SubTopics []SubTopic `json:"Sub-topics"`
}

// SubTopic はトピック配下のサブトピック
type SubTopic struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// IsEmpty はトピックを1件も持たない場合に true を返す
func (c *Chapters) IsEmpty() bool {
	return c == nil || len(c.Topics) == 0
}

// TopicChunk はサブトピック本文から切り出したチャンク
type TopicChunk struct {
	Text          string
	TopicTitle    string
	SubtopicTitle string
}

// Chunk はベクトル化対象の1単位
type Chunk struct {
	ChunkID       string
	Type          Type
	Index         int
	Text          string
	TopicTitle    string
	SubtopicTitle string
	CourseID      int64
	ModuleID      int64
	ResourceID    int64
}

// ChunkID はリソース内で一意なチャンク識別子を組み立てる。
// ベクトルストアのキーには使わない。
func ChunkID(courseID, moduleID, resourceID int64, index int) string {
	return fmt.Sprintf("%d_%d_%d_%d", courseID, moduleID, resourceID, index)
}

// Payload はベクトルストアに保存するメタデータを返す
func (c Chunk) Payload() map[string]any {
	payload := map[string]any{
		"course_id":   c.CourseID,
		"module_id":   c.ModuleID,
		"resource_id": c.ResourceID,
		"chunk_id":    c.ChunkID,
		"chunk_type":  string(c.Type),
		"chunk_index": int64(c.Index),
		"text":        c.Text,
	}
	if c.Type == TypeChapter {
		payload["topic_title"] = c.TopicTitle
		payload["subtopic_title"] = c.SubtopicTitle
	}
	return payload
}
