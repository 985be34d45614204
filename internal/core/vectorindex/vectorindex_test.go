package vectorindex_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/course-rag/internal/core/vectorindex"
	"github.com/jinford/course-rag/internal/core/vectorindex/vectorindextest"
)

const coll = "videos"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func point(id uint64, course, module, resource int64) vectorindex.Point {
	return vectorindex.Point{
		ID:     id,
		Vector: []float32{1, 0},
		Payload: map[string]any{
			"course_id":   course,
			"module_id":   module,
			"resource_id": resource,
		},
	}
}

func TestScope_Filter(t *testing.T) {
	tests := []struct {
		name  string
		scope vectorindex.Scope
		want  []vectorindex.Condition
	}{
		{name: "空スコープは全件一致", scope: vectorindex.Scope{}, want: nil},
		{name: "コース", scope: vectorindex.CourseScope(1), want: []vectorindex.Condition{{Key: "course_id", Value: 1}}},
		{
			name:  "リソース",
			scope: vectorindex.ResourceScope(1, 2, 3),
			want: []vectorindex.Condition{
				{Key: "course_id", Value: 1},
				{Key: "module_id", Value: 2},
				{Key: "resource_id", Value: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Filter().Must)
		})
	}
}

func TestScope_Validate(t *testing.T) {
	assert.NoError(t, vectorindex.Scope{}.Validate())
	assert.NoError(t, vectorindex.ModuleScope(1, 2).Validate())

	err := vectorindex.Scope{ModuleID: mo.Some[int64](2)}.Validate()
	assert.ErrorIs(t, err, vectorindex.ErrInvalidScope)

	err = vectorindex.Scope{CourseID: mo.Some[int64](1), ResourceID: mo.Some[int64](3)}.Validate()
	assert.ErrorIs(t, err, vectorindex.ErrInvalidScope)

	assert.ErrorIs(t, vectorindex.Scope{}.ValidateForWrite(), vectorindex.ErrInvalidScope)
}

func TestFilter_MatchesJSONNumbers(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"course_id": 5, "module_id": 6}`), &payload))

	assert.True(t, vectorindex.ModuleScope(5, 6).Filter().Matches(payload))
	assert.False(t, vectorindex.ModuleScope(5, 7).Filter().Matches(payload))
	assert.False(t, vectorindex.ResourceScope(5, 6, 1).Filter().Matches(payload))
}

func TestIDAllocator_Next(t *testing.T) {
	ctx := context.Background()

	t.Run("空コレクションは0", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.Seed(coll, 2)

		next, ok := vectorindex.NewIDAllocator(store).Next(ctx, coll)

		assert.True(t, ok)
		assert.Equal(t, uint64(0), next)
	})

	t.Run("最大ID+1", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.Seed(coll, 2, point(3, 1, 1, 1), point(41, 1, 1, 2), point(7, 1, 1, 3))

		next, ok := vectorindex.NewIDAllocator(store).Next(ctx, coll)

		assert.True(t, ok)
		assert.Equal(t, uint64(42), next)
	})

	t.Run("複数ページを走査する", func(t *testing.T) {
		store := vectorindextest.NewStore()
		var points []vectorindex.Point
		for i := range 2500 {
			points = append(points, point(uint64(i), 1, 1, 1))
		}
		store.Seed(coll, 2, points...)

		next, ok := vectorindex.NewIDAllocator(store).Next(ctx, coll)

		assert.True(t, ok)
		assert.Equal(t, uint64(2500), next)
	})

	t.Run("走査上限を超える点は見ない", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.Seed(coll, 2, point(1, 1, 1, 1), point(2, 1, 1, 1), point(99, 1, 1, 1))

		next, ok := vectorindex.NewIDAllocator(store, vectorindex.WithScanLimit(2)).Next(ctx, coll)

		assert.True(t, ok)
		assert.Equal(t, uint64(3), next)
	})

	t.Run("走査失敗は0とフォールバック", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.ScrollFn = func(ctx context.Context, collection string, req vectorindex.ScrollRequest) (*vectorindex.ScrollPage, error) {
			return nil, errors.New("unavailable")
		}

		next, ok := vectorindex.NewIDAllocator(store, vectorindex.WithAllocatorLogger(discardLogger())).Next(ctx, coll)

		assert.False(t, ok)
		assert.Equal(t, uint64(0), next)
	})
}

func TestScopeDeleter_DeleteScope(t *testing.T) {
	ctx := context.Background()

	t.Run("一致しない点は残す", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.Seed(coll, 2, point(1, 1, 1, 1), point(2, 1, 2, 1), point(3, 2, 1, 1))

		report, err := vectorindex.NewScopeDeleter(store, discardLogger()).DeleteScope(ctx, coll, vectorindex.ModuleScope(1, 1))

		require.NoError(t, err)
		assert.Equal(t, uint64(1), report.Before)
		assert.Equal(t, uint64(1), report.Deleted)
		assert.Zero(t, report.Residual)
		ids := []uint64{}
		for _, p := range store.Points(coll) {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []uint64{2, 3}, ids)
	})

	t.Run("空スコープは冪等", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.Seed(coll, 2, point(1, 9, 9, 9))
		deleter := vectorindex.NewScopeDeleter(store, discardLogger())

		for range 2 {
			report, err := deleter.DeleteScope(ctx, coll, vectorindex.CourseScope(1))
			require.NoError(t, err)
			assert.Zero(t, report.Deleted)
		}
		assert.Zero(t, store.DeleteCalls)
	})

	t.Run("残存は警告のみ", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.Seed(coll, 2, point(1, 1, 1, 1))
		calls := 0
		store.CountFn = func(ctx context.Context, collection string, filter vectorindex.Filter) (uint64, error) {
			calls++
			if calls == 1 {
				return 3, nil
			}
			return 1, nil
		}

		report, err := vectorindex.NewScopeDeleter(store, discardLogger()).DeleteScope(ctx, coll, vectorindex.CourseScope(1))

		require.NoError(t, err)
		assert.Equal(t, uint64(2), report.Deleted)
		assert.Equal(t, uint64(1), report.Residual)
	})

	t.Run("削除失敗はエラー", func(t *testing.T) {
		store := vectorindextest.NewStore()
		store.Seed(coll, 2, point(1, 1, 1, 1))
		store.DeleteFn = func(ctx context.Context, collection string, filter vectorindex.Filter) error {
			return errors.New("boom")
		}

		_, err := vectorindex.NewScopeDeleter(store, discardLogger()).DeleteScope(ctx, coll, vectorindex.CourseScope(1))

		assert.Error(t, err)
	})

	t.Run("コース未指定は拒否", func(t *testing.T) {
		store := vectorindextest.NewStore()
		_, err := vectorindex.NewScopeDeleter(store, discardLogger()).DeleteScope(ctx, coll, vectorindex.Scope{})
		assert.ErrorIs(t, err, vectorindex.ErrInvalidScope)
	})
}

func TestReplacer_ReplaceScope(t *testing.T) {
	ctx := context.Background()
	store := vectorindextest.NewStore()
	store.Seed(coll, 2, point(1, 1, 1, 1), point(2, 1, 1, 1), point(3, 1, 2, 1))

	var fresh []vectorindex.Point
	for i := range 5 {
		fresh = append(fresh, point(uint64(10+i), 1, 1, 1))
	}

	report, err := vectorindex.NewReplacer(store,
		vectorindex.WithUpsertBatchSize(2),
		vectorindex.WithReplacerLogger(discardLogger()),
	).ReplaceScope(ctx, coll, vectorindex.ModuleScope(1, 1), fresh)

	require.NoError(t, err)
	assert.Equal(t, uint64(2), report.Delete.Deleted)
	assert.Equal(t, 5, report.Uploaded)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 3, store.UpsertCalls)
	assert.Len(t, store.Points(coll), 6)
}

func TestEnsureFieldIndexes(t *testing.T) {
	ctx := context.Background()
	store := vectorindextest.NewStore()
	store.Seed(coll, 2)
	require.NoError(t, store.CreateFieldIndex(ctx, coll, "course_id", vectorindex.FieldTypeInteger))
	store.IndexFn = func(ctx context.Context, collection, field string) error {
		if field == "resource_id" {
			return errors.New("rejected")
		}
		return nil
	}

	outcomes := vectorindex.EnsureFieldIndexes(ctx, store, coll, vectorindex.ScopeFields, discardLogger())

	require.Len(t, outcomes, 3)
	assert.Equal(t, vectorindex.IndexAlreadyPresent, outcomes[0].Status)
	assert.Equal(t, vectorindex.IndexCreated, outcomes[1].Status)
	assert.Equal(t, vectorindex.IndexFailed, outcomes[2].Status)
	assert.Error(t, outcomes[2].Err)
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	store := vectorindextest.NewStore()

	created, err := vectorindex.EnsureCollection(ctx, store, coll, 768, vectorindex.DistanceCosine)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = vectorindex.EnsureCollection(ctx, store, coll, 768, vectorindex.DistanceCosine)
	require.NoError(t, err)
	assert.False(t, created)

	store.Seed(coll, 768, vectorindex.Point{ID: 1, Vector: make([]float32, 768), Payload: map[string]any{}})
	require.NoError(t, vectorindex.RecreateCollection(ctx, store, coll, 768, vectorindex.DistanceCosine))
	info, err := store.CollectionInfo(ctx, coll)
	require.NoError(t, err)
	assert.Zero(t, info.PointCount)
}
