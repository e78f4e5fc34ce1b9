package pipeline

// Helpers for pulling typed fields out of a decoded payload. Oracle
// replies drift: numbers arrive as floats or strings, lists arrive
// mixed. Each helper returns a zero value when the field is absent or
// the wrong shape; record-level validation decides what to drop.

import "strconv"

func asString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func asFloat(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(m map[string]any, key string) (int, bool) {
	f, ok := asFloat(m, key)
	return int(f), ok
}

func asStringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asIntSlice(m map[string]any, key string) []int {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			out = append(out, int(n))
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				out = append(out, i)
			}
		}
	}
	return out
}

func asObjectSlice(m map[string]any, key string) []map[string]any {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func asObject(m map[string]any, key string) map[string]any {
	obj, _ := m[key].(map[string]any)
	return obj
}
