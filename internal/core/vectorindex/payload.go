package vectorindex

import (
	"encoding/json"
	"math"
)

// PayloadInt はペイロードの値を int64 として取り出す。
// JSON 経由で float64 や json.Number になった値も扱う。
func PayloadInt(payload map[string]any, key string) (int64, bool) {
	raw, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// PayloadString はペイロードの文字列値を返す (存在しなければ空文字)
func PayloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
