package vectorindex

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyExists はペイロードインデックス等が既に存在する場合のエラー
	ErrAlreadyExists = errors.New("already exists")
	// ErrCollectionNotFound はコレクションが存在しない場合のエラー
	ErrCollectionNotFound = errors.New("collection not found")
)

// Distance はベクトル間距離の種類
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceEuclid Distance = "euclid"
)

// FieldType はペイロードインデックスの型
type FieldType string

const (
	FieldTypeInteger FieldType = "integer"
	FieldTypeKeyword FieldType = "keyword"
)

// Point はベクトルストアに保存する1点
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint は類似検索の結果
type ScoredPoint struct {
	ID      uint64
	Score   float32
	Payload map[string]any
}

// ScrollRequest はスクロール (ページング列挙) の条件
type ScrollRequest struct {
	Filter      Filter
	Offset      *uint64
	Limit       int
	WithPayload bool
}

// ScrollPage はスクロール結果の1ページ。NextOffset が nil なら終端。
type ScrollPage struct {
	Points     []Point
	NextOffset *uint64
}

// CollectionInfo はコレクションの概要
type CollectionInfo struct {
	Name       string
	PointCount uint64
	VectorSize int
	Distance   Distance
}

// Store はベクトルデータベースの操作インターフェース
type Store interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	CreateCollection(ctx context.Context, collection string, vectorSize int, distance Distance) error
	DeleteCollection(ctx context.Context, collection string) error
	CollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)
	// CreateFieldIndex は既に存在する場合 ErrAlreadyExists を返す
	CreateFieldIndex(ctx context.Context, collection, field string, fieldType FieldType) error

	Count(ctx context.Context, collection string, filter Filter) (uint64, error)
	Scroll(ctx context.Context, collection string, req ScrollRequest) (*ScrollPage, error)
	Upsert(ctx context.Context, collection string, points []Point) error
	Delete(ctx context.Context, collection string, filter Filter) error
	Query(ctx context.Context, collection string, vector []float32, filter Filter, limit int) ([]ScoredPoint, error)
}
