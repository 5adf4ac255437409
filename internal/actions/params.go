package actions

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// paramString извлекает строковый параметр.
func paramString(params map[string]any, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// paramNumber извлекает числовой параметр.
// Второй результат — false, если параметра нет или он не число.
func paramNumber(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// headerParam извлекает заголовки как http.Header с каноническими ключами.
// Нестроковые значения игнорируются.
func headerParam(params map[string]any, key string) http.Header {
	headers := make(http.Header)

	switch m := params[key].(type) {
	case map[string]string:
		for k, v := range m {
			headers.Set(k, v)
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				headers.Set(k, s)
			}
		}
	}

	return headers
}
