package qdrant

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/course-rag/internal/core/vectorindex"
)

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name    string
		params  ConnectionParams
		want    *qdrant.Config
		wantErr bool
	}{
		{
			name:   "http はTLSなし",
			params: ConnectionParams{URL: "http://localhost:6333"},
			want:   &qdrant.Config{Host: "localhost", Port: DefaultGRPCPort},
		},
		{
			name:   "https はTLSあり",
			params: ConnectionParams{URL: "https://example.cloud.qdrant.io", GRPCPort: 7334, APIKey: "secret"},
			want:   &qdrant.Config{Host: "example.cloud.qdrant.io", Port: 7334, APIKey: "secret", UseTLS: true},
		},
		{
			name:    "URL未指定",
			params:  ConnectionParams{},
			wantErr: true,
		},
		{
			name:    "ホストなし",
			params:  ConnectionParams{URL: "localhost"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := clientConfig(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToFilter(t *testing.T) {
	assert.Nil(t, toFilter(vectorindex.Filter{}))

	f := toFilter(vectorindex.ResourceScope(1, 2, 3).Filter())
	require.NotNil(t, f)
	require.Len(t, f.GetMust(), 3)

	keys := make([]string, 0, 3)
	values := make([]int64, 0, 3)
	for _, c := range f.GetMust() {
		field := c.GetField()
		keys = append(keys, field.GetKey())
		values = append(values, field.GetMatch().GetInteger())
	}
	assert.Equal(t, []string{"course_id", "module_id", "resource_id"}, keys)
	assert.Equal(t, []int64{1, 2, 3}, values)
}

func TestDistanceRoundTrip(t *testing.T) {
	for _, d := range []vectorindex.Distance{vectorindex.DistanceCosine, vectorindex.DistanceDot, vectorindex.DistanceEuclid} {
		assert.Equal(t, d, fromDistance(toDistance(d)))
	}
	assert.Equal(t, qdrant.FieldType_FieldTypeInteger, toFieldType(vectorindex.FieldTypeInteger))
	assert.Equal(t, qdrant.FieldType_FieldTypeKeyword, toFieldType(vectorindex.FieldTypeKeyword))
}

func TestFromPayload(t *testing.T) {
	payload, err := qdrant.TryValueMap(map[string]any{
		"course_id":   int64(7),
		"text":        "hello",
		"score":       0.5,
		"flag":        true,
		"nested":      map[string]any{"page": int64(3)},
		"topic_title": nil,
	})
	require.NoError(t, err)

	got := fromPayload(payload)

	assert.Equal(t, int64(7), got["course_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, 0.5, got["score"])
	assert.Equal(t, true, got["flag"])
	assert.Equal(t, map[string]any{"page": int64(3)}, got["nested"])
	assert.Nil(t, got["topic_title"])

	v, ok := vectorindex.PayloadInt(got, "course_id")
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)
}
