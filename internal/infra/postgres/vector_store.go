package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// DBTX は VectorStore が使う接続 (pgxpool.Pool を想定)
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var fieldNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// VectorStore はコレクションを1テーブルとして pgvector に保存する vectorindex.Store。
// テーブルは (id BIGINT, embedding vector(n), payload JSONB) で、距離関数はテーブルコメントに記録する。
type VectorStore struct {
	db DBTX
}

var _ vectorindex.Store = (*VectorStore)(nil)

// NewVectorStore は新しい VectorStore を返す。
func NewVectorStore(db DBTX) *VectorStore {
	return &VectorStore{db: db}
}

func tableName(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

func (s *VectorStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)`,
		collection,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	return exists, nil
}

func (s *VectorStore) CreateCollection(ctx context.Context, collection string, vectorSize int, distance vectorindex.Distance) error {
	if vectorSize <= 0 {
		return fmt.Errorf("invalid vector size: %d", vectorSize)
	}
	if _, err := operatorFor(distance); err != nil {
		return err
	}

	table := tableName(collection)
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", err)
		}
		ddl := fmt.Sprintf(`CREATE TABLE %s (
	id BIGINT PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}'::jsonb
)`, table, vectorSize)
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", collection, err)
		}
		comment := fmt.Sprintf(`COMMENT ON TABLE %s IS '%s'`, table, distance)
		if _, err := tx.Exec(ctx, comment); err != nil {
			return fmt.Errorf("failed to record distance for %s: %w", collection, err)
		}
		return nil
	})
}

func (s *VectorStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName(collection))); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

func (s *VectorStore) CollectionInfo(ctx context.Context, collection string) (*vectorindex.CollectionInfo, error) {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", collection, vectorindex.ErrCollectionNotFound)
	}

	table := tableName(collection)
	var (
		vectorSize int32
		distance   *string
	)
	err = s.db.QueryRow(ctx,
		`SELECT a.atttypmod, obj_description($1::text::regclass, 'pg_class')
		FROM pg_attribute a
		WHERE a.attrelid = $1::text::regclass AND a.attname = 'embedding'`,
		table,
	).Scan(&vectorSize, &distance)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", collection, err)
	}

	var count int64
	if err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, table)).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}

	info := &vectorindex.CollectionInfo{
		Name:       collection,
		PointCount: uint64(count),
		VectorSize: int(vectorSize),
		Distance:   vectorindex.DistanceCosine,
	}
	if distance != nil && *distance != "" {
		info.Distance = vectorindex.Distance(*distance)
	}
	return info, nil
}

func (s *VectorStore) CreateFieldIndex(ctx context.Context, collection, field string, fieldType vectorindex.FieldType) error {
	if !fieldNamePattern.MatchString(field) {
		return fmt.Errorf("invalid field name: %q", field)
	}

	indexName := collection + "_" + field + "_idx"
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, pgx.Identifier{indexName}.Sanitize()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", field, err)
	}
	if exists {
		return fmt.Errorf("index %s: %w", field, vectorindex.ErrAlreadyExists)
	}

	ddl := fmt.Sprintf(`CREATE INDEX %s ON %s ((%s))`,
		pgx.Identifier{indexName}.Sanitize(), tableName(collection), fieldExpr(field, fieldType))
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create index %s: %w", field, err)
	}
	return nil
}

func (s *VectorStore) Count(ctx context.Context, collection string, filter vectorindex.Filter) (uint64, error) {
	where, args, err := whereClause(filter, 1)
	if err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf(`SELECT count(*) FROM %s%s`, tableName(collection), where)
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return uint64(n), nil
}

// Scroll は id 昇順に limit+1 件を読み、余分な1件の id を次ページの開始位置にする
func (s *VectorStore) Scroll(ctx context.Context, collection string, req vectorindex.ScrollRequest) (*vectorindex.ScrollPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args, err := whereClause(req.Filter, 1)
	if err != nil {
		return nil, err
	}
	if req.Offset != nil {
		args = append(args, int64(*req.Offset))
		if where == "" {
			where = fmt.Sprintf(" WHERE id >= $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND id >= $%d", len(args))
		}
	}
	args = append(args, limit+1)
	query := fmt.Sprintf(`SELECT id, payload FROM %s%s ORDER BY id LIMIT $%d`, tableName(collection), where, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}
	defer rows.Close()

	page := &vectorindex.ScrollPage{}
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		if len(page.Points) == limit {
			next := uint64(id)
			page.NextOffset = &next
			break
		}
		p := vectorindex.Point{ID: uint64(id)}
		if req.WithPayload {
			if p.Payload, err = PayloadFromJSONB(payload); err != nil {
				return nil, fmt.Errorf("invalid payload for point %d: %w", id, err)
			}
		}
		page.Points = append(page.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}
	return page, nil
}

func (s *VectorStore) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	if len(points) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, payload) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, tableName(collection))

	batch := &pgx.Batch{}
	for _, p := range points {
		payload, err := JSONBFromPayload(p.Payload)
		if err != nil {
			return fmt.Errorf("invalid payload for point %d: %w", p.ID, err)
		}
		batch.Queue(query, int64(p.ID), pgvector.NewVector(p.Vector), payload)
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
		return nil
	})
}

func (s *VectorStore) Delete(ctx context.Context, collection string, filter vectorindex.Filter) error {
	where, args, err := whereClause(filter, 1)
	if err != nil {
		return err
	}
	if where == "" {
		return errors.New("refusing to delete without filter")
	}
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s%s`, tableName(collection), where), args...); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func (s *VectorStore) Query(ctx context.Context, collection string, vector []float32, filter vectorindex.Filter, limit int) ([]vectorindex.ScoredPoint, error) {
	info, err := s.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	op, err := operatorFor(info.Distance)
	if err != nil {
		return nil, err
	}

	where, args, err := whereClause(filter, 2)
	if err != nil {
		return nil, err
	}
	args = append([]any{pgvector.NewVector(vector)}, args...)
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, payload, embedding %s $1 AS distance FROM %s%s ORDER BY distance LIMIT $%d`,
		op, tableName(collection), where, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var hits []vectorindex.ScoredPoint
	for rows.Next() {
		var (
			id       int64
			payload  []byte
			distance float64
		)
		if err := rows.Scan(&id, &payload, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		decoded, err := PayloadFromJSONB(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid payload for point %d: %w", id, err)
		}
		hits = append(hits, vectorindex.ScoredPoint{
			ID:      uint64(id),
			Score:   scoreFromDistance(info.Distance, distance),
			Payload: decoded,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	return hits, nil
}

func operatorFor(d vectorindex.Distance) (string, error) {
	switch d {
	case vectorindex.DistanceCosine:
		return "<=>", nil
	case vectorindex.DistanceDot:
		return "<#>", nil
	case vectorindex.DistanceEuclid:
		return "<->", nil
	default:
		return "", fmt.Errorf("unsupported distance: %q", d)
	}
}

// scoreFromDistance は演算子の戻り値を「大きいほど近い」スコアに揃える (euclid は距離のまま)
func scoreFromDistance(d vectorindex.Distance, distance float64) float32 {
	switch d {
	case vectorindex.DistanceCosine:
		return float32(1 - distance)
	case vectorindex.DistanceDot:
		return float32(-distance)
	default:
		return float32(distance)
	}
}

func fieldExpr(field string, fieldType vectorindex.FieldType) string {
	if fieldType == vectorindex.FieldTypeKeyword {
		return fmt.Sprintf(`payload->>'%s'`, field)
	}
	return fmt.Sprintf(`(payload->>'%s')::bigint`, field)
}

// whereClause は Must 条件を $start からのプレースホルダで組み立てる。空フィルタは空文字。
func whereClause(filter vectorindex.Filter, start int) (string, []any, error) {
	if filter.IsEmpty() {
		return "", nil, nil
	}
	conds := make([]string, 0, len(filter.Must))
	args := make([]any, 0, len(filter.Must))
	for i, c := range filter.Must {
		if !fieldNamePattern.MatchString(c.Key) {
			return "", nil, fmt.Errorf("invalid field name: %q", c.Key)
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", fieldExpr(c.Key, vectorindex.FieldTypeInteger), start+i))
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
