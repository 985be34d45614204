// Package vectorindextest はテスト用のインメモリ Store を提供する
package vectorindextest

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// Store はインメモリの vectorindex.Store 実装。
// XxxFn を設定するとその操作を差し替えられる。
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection

	CountFn  func(ctx context.Context, collection string, filter vectorindex.Filter) (uint64, error)
	ScrollFn func(ctx context.Context, collection string, req vectorindex.ScrollRequest) (*vectorindex.ScrollPage, error)
	UpsertFn func(ctx context.Context, collection string, points []vectorindex.Point) error
	DeleteFn func(ctx context.Context, collection string, filter vectorindex.Filter) error
	IndexFn  func(ctx context.Context, collection, field string) error

	// 呼び出し回数
	DeleteCalls int
	UpsertCalls int
	QueryCalls  int

	LastQueryFilter vectorindex.Filter
	LastQueryLimit  int
}

type collection struct {
	vectorSize int
	distance   vectorindex.Distance
	points     map[uint64]vectorindex.Point
	indexes    map[string]vectorindex.FieldType
}

var _ vectorindex.Store = (*Store)(nil)

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Seed はコレクションを作成して点を投入する
func (s *Store) Seed(name string, vectorSize int, points ...vectorindex.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = newCollection(vectorSize, vectorindex.DistanceCosine)
		s.collections[name] = c
	}
	for _, p := range points {
		c.points[p.ID] = clonePoint(p)
	}
}

// Points はコレクション内の点を ID 昇順で返す
func (s *Store) Points(name string) []vectorindex.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	ids := slices.Sorted(maps.Keys(c.points))
	out := make([]vectorindex.Point, 0, len(ids))
	for _, id := range ids {
		out = append(out, clonePoint(c.points[id]))
	}
	return out
}

// Indexes はコレクションに作成されたインデックスを返す
func (s *Store) Indexes(name string) map[string]vectorindex.FieldType {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	return maps.Clone(c.indexes)
}

func newCollection(size int, distance vectorindex.Distance) *collection {
	return &collection{
		vectorSize: size,
		distance:   distance,
		points:     make(map[uint64]vectorindex.Point),
		indexes:    make(map[string]vectorindex.FieldType),
	}
}

func clonePoint(p vectorindex.Point) vectorindex.Point {
	return vectorindex.Point{
		ID:      p.ID,
		Vector:  slices.Clone(p.Vector),
		Payload: maps.Clone(p.Payload),
	}
}

func (s *Store) get(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}
	return c, nil
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, vectorSize int, distance vectorindex.Distance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("collection %s: %w", name, vectorindex.ErrAlreadyExists)
	}
	s.collections[name] = newCollection(vectorSize, distance)
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) CollectionInfo(ctx context.Context, name string) (*vectorindex.CollectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return &vectorindex.CollectionInfo{
		Name:       name,
		PointCount: uint64(len(c.points)),
		VectorSize: c.vectorSize,
		Distance:   c.distance,
	}, nil
}

func (s *Store) CreateFieldIndex(ctx context.Context, name, field string, fieldType vectorindex.FieldType) error {
	if s.IndexFn != nil {
		if err := s.IndexFn(ctx, name, field); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	if _, ok := c.indexes[field]; ok {
		return fmt.Errorf("index %s: %w", field, vectorindex.ErrAlreadyExists)
	}
	c.indexes[field] = fieldType
	return nil
}

func (s *Store) Count(ctx context.Context, name string, filter vectorindex.Filter) (uint64, error) {
	if s.CountFn != nil {
		return s.CountFn(ctx, name, filter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, p := range c.points {
		if filter.Matches(p.Payload) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Scroll(ctx context.Context, name string, req vectorindex.ScrollRequest) (*vectorindex.ScrollPage, error) {
	if s.ScrollFn != nil {
		return s.ScrollFn(ctx, name, req)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}

	ids := slices.Sorted(maps.Keys(c.points))
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	page := &vectorindex.ScrollPage{}
	for _, id := range ids {
		if req.Offset != nil && id < *req.Offset {
			continue
		}
		p := c.points[id]
		if !req.Filter.Matches(p.Payload) {
			continue
		}
		if len(page.Points) == limit {
			next := id
			page.NextOffset = &next
			break
		}
		out := vectorindex.Point{ID: p.ID}
		if req.WithPayload {
			out.Payload = maps.Clone(p.Payload)
		}
		page.Points = append(page.Points, out)
	}
	return page, nil
}

func (s *Store) Upsert(ctx context.Context, name string, points []vectorindex.Point) error {
	s.mu.Lock()
	s.UpsertCalls++
	s.mu.Unlock()
	if s.UpsertFn != nil {
		if err := s.UpsertFn(ctx, name, points); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if c.vectorSize > 0 && len(p.Vector) != c.vectorSize {
			return fmt.Errorf("point %d: vector size %d, want %d", p.ID, len(p.Vector), c.vectorSize)
		}
		c.points[p.ID] = clonePoint(p)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string, filter vectorindex.Filter) error {
	s.mu.Lock()
	s.DeleteCalls++
	s.mu.Unlock()
	if s.DeleteFn != nil {
		if err := s.DeleteFn(ctx, name, filter); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for id, p := range c.points {
		if filter.Matches(p.Payload) {
			delete(c.points, id)
		}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, name string, vector []float32, filter vectorindex.Filter, limit int) ([]vectorindex.ScoredPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryCalls++
	s.LastQueryFilter = filter
	s.LastQueryLimit = limit

	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	var hits []vectorindex.ScoredPoint
	for _, p := range c.points {
		if !filter.Matches(p.Payload) {
			continue
		}
		hits = append(hits, vectorindex.ScoredPoint{
			ID:      p.ID,
			Score:   cosine(vector, p.Vector),
			Payload: maps.Clone(p.Payload),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
