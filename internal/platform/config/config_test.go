package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"POSTGRES_HOST", "VECTOR_BACKEND", "EMBEDDING_PROVIDER", "EMBEDDING_DIMENSION",
		"EMBEDDING_BATCH_SIZE", "EMBEDDING_BATCH_DELAY", "CHUNK_MAX_WORDS", "ID_ALLOCATION_STRICT",
		"QDRANT_COLLECTION_NAME_VIDEO", "QDRANT_COLLECTION_NAME_MATERIAL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, BackendQdrant, cfg.VectorStore.Backend)
	assert.Equal(t, ProviderGemini, cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.Equal(t, time.Second, cfg.Embedding.BatchDelay)
	assert.Equal(t, 250, cfg.Sync.ChunkMaxWords)
	assert.Equal(t, 10000, cfg.Sync.IDScanLimit)
	assert.False(t, cfg.Sync.StrictIDAllocation)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "PGVECTOR")
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("EMBEDDING_BATCH_DELAY", "0.5")
	t.Setenv("ID_ALLOCATION_STRICT", "true")
	t.Setenv("UPSERT_BATCH_SIZE", "not-a-number")
	t.Setenv("QDRANT_COLLECTION_NAME_VIDEO", "videos")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendPgvector, cfg.VectorStore.Backend)
	assert.Equal(t, ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.Embedding.BatchDelay)
	assert.True(t, cfg.Sync.StrictIDAllocation)
	assert.Equal(t, 100, cfg.Sync.UpsertBatchSize)
	assert.Equal(t, "videos", cfg.VectorStore.VideoCollection)
}

func TestLoad_EnvFile(t *testing.T) {
	// godotenv は既存の変数を上書きしないので未設定にしておく
	t.Setenv("POSTGRES_DB", "")
	require.NoError(t, os.Unsetenv("POSTGRES_DB"))
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("POSTGRES_DB=lms\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lms", cfg.Database.DBName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidEnum(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "milvus")

	_, err := Load("")
	assert.Error(t, err)
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("X_DURATION", "2s")
	assert.Equal(t, 2*time.Second, getEnvAsDuration("X_DURATION", time.Minute))

	t.Setenv("X_DURATION", "bogus")
	assert.Equal(t, time.Minute, getEnvAsDuration("X_DURATION", time.Minute))
}
