package postgres

import (
	"bytes"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/course-rag/internal/core/ingestion"
)

// PgInt8ToInt64Ptr converts pgtype.Int8 to *int64
func PgInt8ToInt64Ptr(i pgtype.Int8) *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Int64
	return &v
}

// PgtextToJSONField converts pgtype.Text (json/jsonb を text にキャストした列) to ingestion.JSONField
func PgtextToJSONField(t pgtype.Text) ingestion.JSONField {
	if !t.Valid {
		return ingestion.AbsentField()
	}
	return ingestion.RawField(t.String)
}

// JSONBFromPayload converts payload map to JSONB text
func JSONBFromPayload(payload map[string]any) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PayloadFromJSONB converts JSONB bytes to payload map. 整数は json.Number のまま保持する。
func PayloadFromJSONB(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}
