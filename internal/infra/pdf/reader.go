package pdf

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/course-rag/internal/core/ingestion"
	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
)

// Reader は PDF をページ単位のプレーンテキストとして読み出す
type Reader struct{}

var _ ingestion.DocumentReader = (*Reader)(nil)

// NewReader は新しい Reader を返す
func NewReader() *Reader {
	return &Reader{}
}

// ReadPages は空白のみのページを除いたページ列を返す (ページ番号は 1 始まり)
func (r *Reader) ReadPages(ctx context.Context, path string) ([]chunk.Page, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := doc.NumPage()
	pages := make([]chunk.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = sanitizeText(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, chunk.Page{Number: i, Text: text})
	}
	return pages, nil
}

// sanitizeText は抽出器が混ぜる NUL などの制御文字を取り除く
func sanitizeText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
}
