package chunk

import "fmt"

// Page は PDF から抽出した1ページ分のテキスト (Number は 1 始まり)
type Page struct {
	Number int
	Text   string
}

// PageChunk は教材 PDF から切り出したチャンク
type PageChunk struct {
	ChunkID  string
	CourseID int64
	BookName string
	Page     int
	Text     string
}

// Payload はベクトルストアに保存するメタデータを返す
func (c PageChunk) Payload() map[string]any {
	return map[string]any{
		"course_id": c.CourseID,
		"book_name": c.BookName,
		"page":      int64(c.Page),
		"chunk_id":  c.ChunkID,
		"text":      c.Text,
	}
}

// SplitPages はページごとに語数分割し、文書全体で通し番号を振る
func SplitPages(courseID int64, bookName string, pages []Page, maxWords int) []PageChunk {
	var chunks []PageChunk
	counter := 0
	for _, page := range pages {
		for _, text := range SplitByWords(page.Text, maxWords) {
			chunks = append(chunks, PageChunk{
				ChunkID:  fmt.Sprintf("%d_%s_%d_%d", courseID, bookName, page.Number, counter),
				CourseID: courseID,
				BookName: bookName,
				Page:     page.Number,
				Text:     text,
			})
			counter++
		}
	}
	return chunks
}
