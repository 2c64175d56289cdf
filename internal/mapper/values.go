package mapper

// Loose accessors over decoded JSON. All of them tolerate a nil map and a
// value of the wrong type, returning the zero result instead.

func getMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func getSlice(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	v, _ := m[key].([]any)
	return v
}

func getString(m map[string]any, key string) *string {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(string); ok {
		return &v
	}
	return nil
}

// getInt64 reads a JSON number. encoding/json decodes numbers in an `any`
// as float64; GitHub IDs fit int64 well inside float64's exact-integer range.
func getInt64(m map[string]any, key string) *int64 {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(float64); ok {
		i := int64(v)
		return &i
	}
	return nil
}

func getBool(m map[string]any, key string) *bool {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(bool); ok {
		return &v
	}
	return nil
}

func getBoolOr(m map[string]any, key string, fallback bool) bool {
	if v := getBool(m, key); v != nil {
		return *v
	}
	return fallback
}
