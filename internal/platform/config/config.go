package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ベクトルストアのバックエンド
const (
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
)

// 埋め込みプロバイダ
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定（コースリソースの取得元、pgvector 利用時は保存先も兼ねる）
	Database DatabaseConfig

	// ベクトルストア設定
	VectorStore VectorStoreConfig

	// 埋め込み設定
	Embedding EmbeddingConfig

	// 同期処理の設定
	Sync SyncConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// VectorStoreConfig はベクトルストアの接続設定
type VectorStoreConfig struct {
	Backend            string // "qdrant" or "pgvector"
	QdrantURL          string
	QdrantGRPCPort     int
	QdrantAPIKey       string
	VideoCollection    string
	MaterialCollection string
}

// EmbeddingConfig は埋め込み API の設定
type EmbeddingConfig struct {
	Provider       string // "gemini" or "openai"
	GoogleAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	Dimension      int
	BatchSize      int
	BatchDelay     time.Duration
	RequestTimeout time.Duration
}

// SyncConfig はチャンク化と書き込みの設定
type SyncConfig struct {
	ChunkMaxWords      int
	UpsertBatchSize    int
	IDScanLimit        int
	StrictIDAllocation bool
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "course"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		VectorStore: VectorStoreConfig{
			Backend:            strings.ToLower(getEnv("VECTOR_BACKEND", BackendQdrant)),
			QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantGRPCPort:     getEnvAsInt("QDRANT_GRPC_PORT", 6334),
			QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
			VideoCollection:    getEnv("QDRANT_COLLECTION_NAME_VIDEO", "course_videos"),
			MaterialCollection: getEnv("QDRANT_COLLECTION_NAME_MATERIAL", "course_materials"),
		},
		Embedding: EmbeddingConfig{
			Provider:       strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderGemini)),
			GoogleAPIKey:   getEnv("GOOGLE_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension:      getEnvAsInt("EMBEDDING_DIMENSION", 768),
			BatchSize:      getEnvAsInt("EMBEDDING_BATCH_SIZE", 100),
			BatchDelay:     getEnvAsDuration("EMBEDDING_BATCH_DELAY", time.Second),
			RequestTimeout: getEnvAsDuration("EMBEDDING_REQUEST_TIMEOUT", 60*time.Second),
		},
		Sync: SyncConfig{
			ChunkMaxWords:      getEnvAsInt("CHUNK_MAX_WORDS", 250),
			UpsertBatchSize:    getEnvAsInt("UPSERT_BATCH_SIZE", 100),
			IDScanLimit:        getEnvAsInt("ID_SCAN_LIMIT", 10000),
			StrictIDAllocation: getEnvAsBool("ID_ALLOCATION_STRICT", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は列挙値と数値の範囲を検証します。API キーはコマンド実行時に検証する。
func (c *Config) Validate() error {
	switch c.VectorStore.Backend {
	case BackendQdrant, BackendPgvector:
	default:
		return fmt.Errorf("unsupported VECTOR_BACKEND: %q", c.VectorStore.Backend)
	}
	switch c.Embedding.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported EMBEDDING_PROVIDER: %q", c.Embedding.Provider)
	}
	if c.VectorStore.VideoCollection == "" || c.VectorStore.MaterialCollection == "" {
		return fmt.Errorf("collection names must not be empty")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive: %d", c.Embedding.Dimension)
	}
	if c.Sync.ChunkMaxWords <= 0 {
		return fmt.Errorf("CHUNK_MAX_WORDS must be positive: %d", c.Sync.ChunkMaxWords)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します。単位なしの数値は秒とみなす。
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
