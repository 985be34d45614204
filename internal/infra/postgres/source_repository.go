package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/course-rag/internal/core/ingestion"
	"github.com/jinford/course-rag/internal/core/vectorindex"
)

// Querier は読み取りクエリを発行できる接続 (pgxpool.Pool / pgx.Tx)
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectResources = `SELECT
	m.course_id,
	r.module_id,
	r.id,
	r.summary::text,
	r.chapters::text
FROM course.t_module m
JOIN course.t_resource r ON m.id = r.module_id`

// SourceRepository は ingestion.SourceRepository を実装する PostgreSQL リポジトリ。
type SourceRepository struct {
	q Querier
}

// NewSourceRepository は新しい SourceRepository を返す。
func NewSourceRepository(q Querier) *SourceRepository {
	return &SourceRepository{q: q}
}

var _ ingestion.SourceRepository = (*SourceRepository)(nil)

func (r *SourceRepository) FetchResources(ctx context.Context, scope vectorindex.Scope) ([]ingestion.SourceRecord, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query, args := buildResourceQuery(scope)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var records []ingestion.SourceRecord
	for rows.Next() {
		var (
			courseID   int64
			moduleID   pgtype.Int8
			resourceID int64
			summary    pgtype.Text
			chapters   pgtype.Text
		)
		if err := rows.Scan(&courseID, &moduleID, &resourceID, &summary, &chapters); err != nil {
			return nil, fmt.Errorf("failed to scan resource row: %w", err)
		}
		records = append(records, ingestion.SourceRecord{
			CourseID:   courseID,
			ModuleID:   PgInt8ToInt64Ptr(moduleID),
			ResourceID: resourceID,
			Summary:    PgtextToJSONField(summary),
			Chapters:   PgtextToJSONField(chapters),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resource rows: %w", err)
	}
	return records, nil
}

// buildResourceQuery はスコープの指定フィールドだけをプレースホルダ付きの条件にする
func buildResourceQuery(scope vectorindex.Scope) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, v int64) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if v, ok := scope.CourseID.Get(); ok {
		add("m.course_id", v)
	}
	if v, ok := scope.ModuleID.Get(); ok {
		add("r.module_id", v)
	}
	if v, ok := scope.ResourceID.Get(); ok {
		add("r.id", v)
	}

	var sb strings.Builder
	sb.WriteString(selectResources)
	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString("\nORDER BY m.course_id, r.module_id, r.id")
	return sb.String(), args
}
