package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinford/course-rag/internal/core/ingestion"
)

// ResourceFile は正規化済みリソースを JSON 配列として保存する
type ResourceFile struct{}

var _ ingestion.ResourceFile = (*ResourceFile)(nil)

// NewResourceFile は新しい ResourceFile を返す
func NewResourceFile() *ResourceFile {
	return &ResourceFile{}
}

// Write は 4 スペースのインデントで書き出す。非 ASCII 文字はエスケープしない。
func (f *ResourceFile) Write(path string, resources []ingestion.Resource) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if resources == nil {
		resources = []ingestion.Resource{}
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resources); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

func (f *ResourceFile) Read(path string) ([]ingestion.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var resources []ingestion.Resource
	if err := json.Unmarshal(data, &resources); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return resources, nil
}
