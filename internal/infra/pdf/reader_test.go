package pdf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "ab\ncd\te", sanitizeText("a\x00b\ncd\te\x07"))
	assert.Equal(t, "", sanitizeText(""))
}

func TestReader_ReadPagesMissingFile(t *testing.T) {
	_, err := NewReader().ReadPages(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
