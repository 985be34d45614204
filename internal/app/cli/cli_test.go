package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/jinford/course-rag/internal/core/search"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

func runScopeFlags(t *testing.T, args ...string) vectorindex.Scope {
	t.Helper()

	var got vectorindex.Scope
	cmd := &cli.Command{
		Name:  "x",
		Flags: ScopeFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			got = scopeFromFlags(cmd)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"x"}, args...)))
	return got
}

func TestScopeFromFlags(t *testing.T) {
	t.Run("未指定なら空のスコープ", func(t *testing.T) {
		scope := runScopeFlags(t)
		assert.True(t, scope.IsEmpty())
	})

	t.Run("コースのみ", func(t *testing.T) {
		scope := runScopeFlags(t, "--course-id", "1")
		assert.Equal(t, vectorindex.CourseScope(1), scope)
	})

	t.Run("リソースまで指定", func(t *testing.T) {
		scope := runScopeFlags(t, "--course-id", "1", "--module-id", "2", "--resource-id", "3")
		assert.Equal(t, vectorindex.ResourceScope(1, 2, 3), scope)
	})

	t.Run("0 も指定値として扱う", func(t *testing.T) {
		scope := runScopeFlags(t, "--course-id", "0")
		assert.False(t, scope.IsEmpty())
		assert.Equal(t, vectorindex.CourseScope(0), scope)
	})
}

func TestIsConfirmed(t *testing.T) {
	assert.True(t, isConfirmed("YES"))
	assert.True(t, isConfirmed(" YES\n"))
	assert.False(t, isConfirmed("yes"))
	assert.False(t, isConfirmed("Y"))
	assert.False(t, isConfirmed(""))
}

func TestIsExitWord(t *testing.T) {
	for _, word := range []string{"exit", "quit", "bye", "EXIT", "Bye"} {
		assert.True(t, isExitWord(word), word)
	}
	assert.False(t, isExitWord("exits"))
	assert.False(t, isExitWord("Go の並行処理"))
}

func TestBookNameFromPath(t *testing.T) {
	assert.Equal(t, "handbook", bookNameFromPath("/data/books/handbook.pdf"))
	assert.Equal(t, "notes.v2", bookNameFromPath("notes.v2.pdf"))
	assert.Equal(t, "readme", bookNameFromPath("readme"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n b\t\tc", 10))
	assert.Equal(t, "あいう...", preview("あいうえお", 3))
	assert.Equal(t, "", preview("", 3))
}

func TestCollectionTargets(t *testing.T) {
	targets, err := collectionTargets("all", "videos", "materials")
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "videos", targets[0].name)
	assert.Equal(t, vectorindex.ScopeFields, targets[0].fields)
	assert.Equal(t, "materials", targets[1].name)

	targets, err = collectionTargets("material", "videos", "materials")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "material", targets[0].kind)

	_, err = collectionTargets("books", "videos", "materials")
	assert.Error(t, err)
}

func TestRenderHits(t *testing.T) {
	t.Run("該当なし", func(t *testing.T) {
		var buf bytes.Buffer
		renderHits(&buf, nil)
		assert.Contains(t, buf.String(), "該当するチャンクはありません")
	})

	t.Run("動画チャンクと教材チャンク", func(t *testing.T) {
		hits := []search.Hit{
			{
				ID:    10,
				Score: 0.91,
				Payload: map[string]any{
					"course_id": int64(1), "module_id": int64(2), "resource_id": int64(3),
					"chunk_index": int64(0), "chunk_type": "summary", "text": "goroutine の基本",
				},
			},
			{
				ID:    11,
				Score: 0.5,
				Payload: map[string]any{
					"course_id": int64(1), "book_name": "handbook", "page": int64(7), "text": "channel",
				},
			},
		}

		var buf bytes.Buffer
		renderHits(&buf, hits)
		out := buf.String()
		assert.Contains(t, out, "score=0.9100 id=10")
		assert.Contains(t, out, "course=1 module=2 resource=3 chunk=0 (summary)")
		assert.Contains(t, out, "goroutine の基本")
		assert.Contains(t, out, "book=handbook page=7")
	})
}

func TestRenderChunkSummary(t *testing.T) {
	hits := []search.Hit{
		{ID: 1, Payload: map[string]any{"resource_id": int64(5), "chunk_type": "summary"}},
		{ID: 2, Payload: map[string]any{"resource_id": int64(5), "chunk_type": "chapter"}},
		{ID: 3, Payload: map[string]any{"resource_id": int64(6), "chunk_type": "chapter"}},
	}

	var buf bytes.Buffer
	renderChunkSummary(&buf, search.Summarize(hits))
	out := buf.String()
	assert.Contains(t, out, "合計: 3 チャンク")
	assert.Contains(t, out, "chapter")
	assert.Contains(t, out, "summary")
}

func TestRenderDeleteReport(t *testing.T) {
	var buf bytes.Buffer
	renderDeleteReport(&buf, vectorindex.ModuleScope(1, 2), vectorindex.DeleteReport{Before: 4, Deleted: 4})
	out := buf.String()
	assert.Contains(t, out, "4")
	assert.NotEmpty(t, out)
}
