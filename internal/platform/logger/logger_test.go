package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     slog.Level
		wantFormat    string
	}{
		{"", "", slog.LevelInfo, "json"},
		{"DEBUG", "text", slog.LevelDebug, "text"},
		{"warning", "json", slog.LevelWarn, "json"},
		{"error", "xml", slog.LevelError, "json"},
		{"verbose", "TEXT", slog.LevelInfo, "text"},
	}
	for _, tt := range tests {
		cfg := ParseConfig(tt.level, tt.format)
		assert.Equal(t, tt.wantLevel, cfg.Level, tt.level)
		assert.Equal(t, tt.wantFormat, cfg.Format, tt.format)
	}
}

func TestNew_WritesToOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})

	log.Info("表示されない")
	log.Warn("警告", "courseID", 1)

	assert.NotContains(t, buf.String(), "表示されない")
	assert.Contains(t, buf.String(), `"msg":"警告"`)
	assert.Contains(t, buf.String(), `"courseID":1`)
}
