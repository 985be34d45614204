package qdrant

import (
	"context"
	"fmt"
	"net/url"

	"github.com/qdrant/go-client/qdrant"

	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// DefaultGRPCPort は Qdrant の gRPC ポート
const DefaultGRPCPort = 6334

// ConnectionParams は Qdrant への接続パラメータ
type ConnectionParams struct {
	URL      string
	GRPCPort int
	APIKey   string
}

// Store は Qdrant をバックエンドにした vectorindex.Store
type Store struct {
	client *qdrant.Client
}

var _ vectorindex.Store = (*Store)(nil)

// New は Qdrant クライアントを生成する
func New(params ConnectionParams) (*Store, error) {
	cfg, err := clientConfig(params)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close は接続を閉じる
func (s *Store) Close() error {
	return s.client.Close()
}

func clientConfig(params ConnectionParams) (*qdrant.Config, error) {
	if params.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	u, err := url.Parse(params.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("invalid qdrant url: %q", params.URL)
	}

	port := params.GRPCPort
	if port <= 0 {
		port = DefaultGRPCPort
	}
	return &qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: params.APIKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	return exists, nil
}

func (s *Store) CreateCollection(ctx context.Context, collection string, vectorSize int, distance vectorindex.Distance) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: toDistance(distance),
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

func (s *Store) CollectionInfo(ctx context.Context, collection string) (*vectorindex.CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", collection, err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	return &vectorindex.CollectionInfo{
		Name:       collection,
		PointCount: info.GetPointsCount(),
		VectorSize: int(params.GetSize()),
		Distance:   fromDistance(params.GetDistance()),
	}, nil
}

// CreateFieldIndex は Qdrant 側が冪等なので、既存スキーマを見て ErrAlreadyExists を返す
func (s *Store) CreateFieldIndex(ctx context.Context, collection, field string, fieldType vectorindex.FieldType) error {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to get collection %s: %w", collection, err)
	}
	if _, ok := info.GetPayloadSchema()[field]; ok {
		return fmt.Errorf("index %s: %w", field, vectorindex.ErrAlreadyExists)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      field,
		FieldType:      toFieldType(fieldType).Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", field, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, collection string, filter vectorindex.Filter) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter:         toFilter(filter),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// Scroll は limit+1 件を取得し、余分な1件の ID を次ページの開始位置にする
func (s *Store) Scroll(ctx context.Context, collection string, req vectorindex.ScrollRequest) (*vectorindex.ScrollPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	scroll := &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         toFilter(req.Filter),
		Limit:          qdrant.PtrOf(uint32(limit + 1)),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if req.Offset != nil {
		scroll.Offset = qdrant.NewIDNum(*req.Offset)
	}

	points, err := s.client.Scroll(ctx, scroll)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}

	page := &vectorindex.ScrollPage{}
	for i, p := range points {
		id := p.GetId().GetNum()
		if i == limit {
			page.NextOffset = &id
			break
		}
		out := vectorindex.Point{ID: id}
		if req.WithPayload {
			out.Payload = fromPayload(p.GetPayload())
		}
		page.Points = append(page.Points, out)
	}
	return page, nil
}

func (s *Store) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return fmt.Errorf("invalid payload for point %d: %w", p.ID, err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, filter vectorindex.Filter) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(toFilter(filter)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, filter vectorindex.Filter, limit int) ([]vectorindex.ScoredPoint, error) {
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         toFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	hits := make([]vectorindex.ScoredPoint, len(results))
	for i, r := range results {
		hits[i] = vectorindex.ScoredPoint{
			ID:      r.GetId().GetNum(),
			Score:   r.GetScore(),
			Payload: fromPayload(r.GetPayload()),
		}
	}
	return hits, nil
}

func toFilter(f vectorindex.Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	conds := make([]*qdrant.Condition, len(f.Must))
	for i, c := range f.Must {
		conds[i] = qdrant.NewMatchInt(c.Key, c.Value)
	}
	return &qdrant.Filter{Must: conds}
}

func toDistance(d vectorindex.Distance) qdrant.Distance {
	switch d {
	case vectorindex.DistanceDot:
		return qdrant.Distance_Dot
	case vectorindex.DistanceEuclid:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

func fromDistance(d qdrant.Distance) vectorindex.Distance {
	switch d {
	case qdrant.Distance_Dot:
		return vectorindex.DistanceDot
	case qdrant.Distance_Euclid:
		return vectorindex.DistanceEuclid
	default:
		return vectorindex.DistanceCosine
	}
}

func toFieldType(t vectorindex.FieldType) qdrant.FieldType {
	if t == vectorindex.FieldTypeKeyword {
		return qdrant.FieldType_FieldTypeKeyword
	}
	return qdrant.FieldType_FieldTypeInteger
}

func fromPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return fromPayload(kind.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, len(values))
		for i, item := range values {
			list[i] = fromValue(item)
		}
		return list
	default:
		return nil
	}
}
