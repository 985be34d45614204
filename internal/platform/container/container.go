package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/course-rag/internal/core/embedding"
	"github.com/jinford/course-rag/internal/core/ingestion"
	"github.com/jinford/course-rag/internal/core/search"
	"github.com/jinford/course-rag/internal/core/vectorindex"
	"github.com/jinford/course-rag/internal/infra/gemini"
	"github.com/jinford/course-rag/internal/infra/jsonfile"
	"github.com/jinford/course-rag/internal/infra/openai"
	"github.com/jinford/course-rag/internal/infra/pdf"
	"github.com/jinford/course-rag/internal/infra/postgres"
	"github.com/jinford/course-rag/internal/infra/qdrant"
	"github.com/jinford/course-rag/internal/platform/config"
	"github.com/jinford/course-rag/internal/platform/database"
)

// Feature はコマンドが必要とする外部依存
type Feature uint8

const (
	// FeatureSource はコースリソースの取得元 (PostgreSQL) を使う
	FeatureSource Feature = 1 << iota
	// FeatureEmbedding は埋め込み API を使う
	FeatureEmbedding

	FeatureAll = FeatureSource | FeatureEmbedding
)

// FeatureNone はベクトルストアだけを使う
const FeatureNone Feature = 0

// ServiceContainer はコマンドから使うサービス群を保持する。
// 無効にした Feature に依存するサービスは nil になる。
type ServiceContainer struct {
	Config *config.Config

	Store    vectorindex.Store
	Embedder embedding.Embedder

	SyncService     *ingestion.SyncService
	MaterialService *ingestion.MaterialService
	BatchService    *ingestion.BatchService
	VideoSearch     *search.Service
	MaterialSearch  *search.Service

	logger   *slog.Logger
	database *database.Database
	closers  []func() error
}

type containerOptions struct {
	logger   *slog.Logger
	features Feature
	store    vectorindex.Store
	embedder embedding.Embedder
	source   ingestion.SourceRepository
	reader   ingestion.DocumentReader
	file     ingestion.ResourceFile
	locker   ingestion.ScopeLocker
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithFeatures は接続する外部依存を限定する
func WithFeatures(features Feature) ContainerOption {
	return func(opts *containerOptions) {
		opts.features = features
	}
}

// WithContainerStore はベクトルストアを差し替える
func WithContainerStore(store vectorindex.Store) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder embedding.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerSource はリソース取得元を差し替える
func WithContainerSource(source ingestion.SourceRepository) ContainerOption {
	return func(opts *containerOptions) {
		opts.source = source
	}
}

// WithContainerDocumentReader は PDF リーダーを差し替える
func WithContainerDocumentReader(reader ingestion.DocumentReader) ContainerOption {
	return func(opts *containerOptions) {
		opts.reader = reader
	}
}

// WithContainerResourceFile は中間ファイルの入出力を差し替える
func WithContainerResourceFile(file ingestion.ResourceFile) ContainerOption {
	return func(opts *containerOptions) {
		opts.file = file
	}
}

// WithContainerScopeLocker はスコープロックを差し替える
func WithContainerScopeLocker(locker ingestion.ScopeLocker) ContainerOption {
	return func(opts *containerOptions) {
		opts.locker = locker
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{
		logger:   slog.Default(),
		features: FeatureAll,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	c := &ServiceContainer{
		Config: cfg,
		logger: options.logger,
	}

	needSource := options.features&FeatureSource != 0 && options.source == nil
	needPgvector := cfg.VectorStore.Backend == config.BackendPgvector && options.store == nil
	if needSource || needPgvector {
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}
		c.database = db
	}

	// ベクトルストア
	store := options.store
	if store == nil {
		var err error
		store, err = c.newStore(cfg)
		if err != nil {
			c.Close()
			return nil, err
		}
	}
	c.Store = store

	// Embedder
	if options.features&FeatureEmbedding != 0 {
		embedder := options.embedder
		if embedder == nil {
			var err error
			embedder, err = newEmbedder(ctx, cfg)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("Embedder 初期化に失敗しました: %w", err)
			}
		}
		c.Embedder = embedder
	}

	c.VideoSearch = search.NewService(store, c.Embedder, cfg.VectorStore.VideoCollection, options.logger)
	c.MaterialSearch = search.NewService(store, c.Embedder, cfg.VectorStore.MaterialCollection, options.logger)

	writerCfg := ingestion.WriterConfig{
		MaxWords:           cfg.Sync.ChunkMaxWords,
		VectorSize:         cfg.Embedding.Dimension,
		Distance:           vectorindex.DistanceCosine,
		UpsertBatchSize:    cfg.Sync.UpsertBatchSize,
		IDScanLimit:        cfg.Sync.IDScanLimit,
		StrictIDAllocation: cfg.Sync.StrictIDAllocation,
	}
	serviceOpts := []ingestion.SyncServiceOption{
		ingestion.WithSyncLogger(options.logger),
		ingestion.WithSyncConfig(writerCfg),
	}

	var batcher *embedding.Batcher
	if c.Embedder != nil {
		batcher = embedding.NewBatcher(c.Embedder,
			embedding.WithBatchSize(cfg.Embedding.BatchSize),
			embedding.WithBatchDelay(cfg.Embedding.BatchDelay),
			embedding.WithBatcherLogger(options.logger),
		)

		// MaterialService（PDF）
		reader := options.reader
		if reader == nil {
			reader = pdf.NewReader()
		}
		c.MaterialService = ingestion.NewMaterialService(reader, store, batcher, cfg.VectorStore.MaterialCollection, serviceOpts...)
	}

	// SourceRepository (PostgreSQL)
	source := options.source
	if source == nil && c.database != nil && options.features&FeatureSource != 0 {
		source = postgres.NewSourceRepository(c.database.Pool)
	}
	if source == nil {
		return c, nil
	}

	// BatchService は埋め込みなしでも書き出しに使える
	file := options.file
	if file == nil {
		file = jsonfile.NewResourceFile()
	}
	c.BatchService = ingestion.NewBatchService(source, file, store, batcher, cfg.VectorStore.VideoCollection, serviceOpts...)

	if batcher == nil {
		return c, nil
	}

	locker := options.locker
	if locker == nil && c.database != nil {
		locker = database.NewScopeLocker(database.NewTransactionProvider(c.database.Pool), options.logger)
	}
	syncOpts := serviceOpts
	if locker != nil {
		syncOpts = append(syncOpts, ingestion.WithScopeLocker(locker))
	}
	c.SyncService = ingestion.NewSyncService(source, store, batcher, cfg.VectorStore.VideoCollection, syncOpts...)

	return c, nil
}

func (c *ServiceContainer) newStore(cfg *config.Config) (vectorindex.Store, error) {
	switch cfg.VectorStore.Backend {
	case config.BackendPgvector:
		return postgres.NewVectorStore(c.database.Pool), nil
	case config.BackendQdrant:
		store, err := qdrant.New(qdrant.ConnectionParams{
			URL:      cfg.VectorStore.QdrantURL,
			GRPCPort: cfg.VectorStore.QdrantGRPCPort,
			APIKey:   cfg.VectorStore.QdrantAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("Qdrant 初期化に失敗しました: %w", err)
		}
		c.closers = append(c.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %q", cfg.VectorStore.Backend)
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderGemini:
		if cfg.Embedding.GoogleAPIKey == "" {
			return nil, errors.New("GOOGLE_API_KEY が設定されていません")
		}
		return gemini.NewEmbedder(ctx, cfg.Embedding.GoogleAPIKey,
			gemini.WithEmbeddingModel(cfg.Embedding.GeminiModel),
			gemini.WithEmbeddingDimension(cfg.Embedding.Dimension),
		)
	case config.ProviderOpenAI:
		if cfg.Embedding.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY が設定されていません")
		}
		return openai.NewEmbedder(cfg.Embedding.OpenAIAPIKey,
			openai.WithEmbeddingModel(cfg.Embedding.OpenAIModel),
			openai.WithEmbeddingDimension(cfg.Embedding.Dimension),
			openai.WithRequestOptions(option.WithRequestTimeout(cfg.Embedding.RequestTimeout)),
		), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Embedding.Provider)
	}
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c == nil {
		return
	}
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			c.Logger().Warn("リソースの解放に失敗しました", "error", err)
		}
	}
	c.closers = nil
	if c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *database.Database {
	if c == nil {
		return nil
	}
	return c.database
}

// SearchService はコレクション種別 (video / material) に対応する検索サービスを返す
func (c *ServiceContainer) SearchService(kind string) (*search.Service, error) {
	switch kind {
	case "", "video":
		return c.VideoSearch, nil
	case "material":
		return c.MaterialSearch, nil
	default:
		return nil, fmt.Errorf("unknown collection kind: %q (video|material)", kind)
	}
}
