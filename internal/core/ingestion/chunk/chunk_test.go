package chunk

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i+1)
	}
	return strings.Join(parts, " ")
}

func TestSplitByWords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWords int
		want     int
	}{
		{name: "空文字列", text: "", maxWords: 250, want: 0},
		{name: "空白のみ", text: " \n\t ", maxWords: 250, want: 0},
		{name: "ちょうど上限", text: words(250), maxWords: 250, want: 1},
		{name: "上限超過", text: words(251), maxWords: 250, want: 2},
		{name: "600語", text: words(600), maxWords: 250, want: 3},
		{name: "maxWordsが0", text: words(10), maxWords: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitByWords(tt.text, tt.maxWords)
			assert.Len(t, got, tt.want)
			for _, c := range got {
				assert.NotEmpty(t, c)
				assert.LessOrEqual(t, len(strings.Fields(c)), tt.maxWords)
			}
		})
	}
}

func TestSplitByWords_PreservesTokens(t *testing.T) {
	text := "alpha  beta\tgamma\n\ndelta epsilon zeta eta"
	got := SplitByWords(text, 3)

	require.Equal(t, []string{"alpha beta gamma", "delta epsilon zeta", "eta"}, got)
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(got, " ")))
}

func TestExtractTopicChunks(t *testing.T) {
	t.Run("サブトピック順に分割する", func(t *testing.T) {
		chapters := &Chapters{Topics: []Topic{{
			Title:     "A",
			SubTopics: []SubTopic{{Title: "B", Content: "w1 w2 w3"}},
		}}}

		got := ExtractTopicChunks(chapters, 2)

		assert.Equal(t, []TopicChunk{
			{Text: "w1 w2", TopicTitle: "A", SubtopicTitle: "B"},
			{Text: "w3", TopicTitle: "A", SubtopicTitle: "B"},
		}, got)
	})

	t.Run("本文が空ならチャンクなし", func(t *testing.T) {
		chapters := &Chapters{Topics: []Topic{{
			Title:     "A",
			SubTopics: []SubTopic{{Title: "B"}, {Title: "C", Content: ""}},
		}}}
		assert.Empty(t, ExtractTopicChunks(chapters, 250))
	})

	t.Run("nilは空", func(t *testing.T) {
		assert.Empty(t, ExtractTopicChunks(nil, 250))
	})
}

func TestDecodeChapters(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{
		"Topics": [
			{"title": "T1", "Sub-topics": [{"title": "S1", "content": "x y"}, "broken"]},
			42,
			{"Sub-topics": [{"content": "z"}]}
		]
	}`), &raw))

	chapters, ok := DecodeChapters(raw)
	require.True(t, ok)
	require.Len(t, chapters.Topics, 2)
	assert.Equal(t, "T1", chapters.Topics[0].Title)
	assert.Equal(t, []SubTopic{{Title: "S1", Content: "x y"}}, chapters.Topics[0].SubTopics)
	assert.Equal(t, "", chapters.Topics[1].Title)
	assert.Equal(t, "z", chapters.Topics[1].SubTopics[0].Content)

	_, ok = DecodeChapters([]any{"not", "a", "map"})
	assert.False(t, ok)
}

func TestBuildResourceChunks(t *testing.T) {
	t.Run("要約のみ", func(t *testing.T) {
		got := BuildResourceChunks(1, 2, 3, "short summary", nil, 250)

		require.Len(t, got, 1)
		assert.Equal(t, TypeSummary, got[0].Type)
		assert.Equal(t, 0, got[0].Index)
		assert.Equal(t, "1_2_3_0", got[0].ChunkID)
		assert.NotContains(t, got[0].Payload(), "topic_title")
	})

	t.Run("600語の章は3チャンク", func(t *testing.T) {
		chapters := &Chapters{Topics: []Topic{{
			Title:     "T",
			SubTopics: []SubTopic{{Title: "S", Content: words(600)}},
		}}}

		got := BuildResourceChunks(1, 2, 3, "", chapters, 250)

		require.Len(t, got, 3)
		for i, c := range got {
			assert.Equal(t, TypeChapter, c.Type)
			assert.Equal(t, i+1, c.Index)
			assert.Equal(t, fmt.Sprintf("1_2_3_%d", i+1), c.ChunkID)
		}
		payload := got[2].Payload()
		assert.Equal(t, "T", payload["topic_title"])
		assert.Equal(t, "S", payload["subtopic_title"])
		assert.Equal(t, int64(3), payload["chunk_index"])
	})
}

func TestSplitPages(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: words(3)},
		{Number: 3, Text: words(5)},
	}

	got := SplitPages(7, "book", pages, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "7_book_1_0", got[0].ChunkID)
	assert.Equal(t, "7_book_3_1", got[1].ChunkID)
	assert.Equal(t, "7_book_3_2", got[2].ChunkID)
	assert.Equal(t, 3, got[2].Page)
	assert.Equal(t, int64(3), got[2].Payload()["page"])
}
