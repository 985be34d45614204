package vectorindex

// Condition はペイロードの整数フィールドに対する一致条件
type Condition struct {
	Key   string
	Value int64
}

// Filter は Must の全条件を満たす点に一致する。Must が空なら全件一致。
type Filter struct {
	Must []Condition
}

// Match は一致条件を作る
func Match(key string, value int64) Condition {
	return Condition{Key: key, Value: value}
}

// IsEmpty は条件がない (全件一致) 場合に true を返す
func (f Filter) IsEmpty() bool {
	return len(f.Must) == 0
}

// Matches はペイロードがフィルタを満たすかを判定する
func (f Filter) Matches(payload map[string]any) bool {
	for _, c := range f.Must {
		v, ok := PayloadInt(payload, c.Key)
		if !ok || v != c.Value {
			return false
		}
	}
	return true
}
