package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/course-rag/internal/core/ingestion"
	"github.com/jinford/course-rag/internal/core/ingestion/chunk"
)

func TestResourceFile_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "resources.json")
	resources := []ingestion.Resource{
		{
			CourseID:   1,
			ModuleID:   2,
			ResourceID: 3,
			Summary:    "日本語 <b>",
			Chapters: &chunk.Chapters{Topics: []chunk.Topic{{
				Title:     "A",
				SubTopics: []chunk.SubTopic{{Title: "B", Content: "w1 w2"}},
			}}},
		},
		{CourseID: 1, ModuleID: 2, ResourceID: 4, Summary: "only summary"},
	}

	file := NewResourceFile()
	require.NoError(t, file.Write(path, resources))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "日本語 <b>")
	assert.Contains(t, string(raw), "\n    {")
	assert.Contains(t, string(raw), `"Sub-topics"`)

	got, err := file.Read(path)
	require.NoError(t, err)
	assert.Equal(t, resources, got)
}

func TestResourceFile_WriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	file := NewResourceFile()

	require.NoError(t, file.Write(path, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestResourceFile_ReadErrors(t *testing.T) {
	dir := t.TempDir()
	file := NewResourceFile()

	_, err := file.Read(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o644))
	_, err = file.Read(broken)
	assert.Error(t, err)
}
