package config

import (
	"time"
)

// Node settings arrive as map[string]any from either decoder: YAML yields
// int, JSON yields float64. The getters below accept both and fall back to the
// default on a missing key or a mismatched type.

type number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

func toNumber[T number](val any) (T, bool) {
	switch v := val.(type) {
	case int:
		return T(v), true
	case int32:
		return T(v), true
	case int64:
		return T(v), true
	case uint64:
		return T(v), true
	case float32:
		return T(v), true
	case float64:
		return T(v), true
	}
	return 0, false
}

// GetString returns settings[key] when it is a string
func GetString(settings map[string]any, key string, defaultVal string) string {
	if s, ok := settings[key].(string); ok {
		return s
	}
	return defaultVal
}

// GetInt returns settings[key] as an int, truncating floats
func GetInt(settings map[string]any, key string, defaultVal int) int {
	if n, ok := toNumber[int](settings[key]); ok {
		return n
	}
	return defaultVal
}

// GetFloat64 returns settings[key] as a float64
func GetFloat64(settings map[string]any, key string, defaultVal float64) float64 {
	if f, ok := toNumber[float64](settings[key]); ok {
		return f
	}
	return defaultVal
}

// GetBool returns settings[key] when it is a bool
func GetBool(settings map[string]any, key string, defaultVal bool) bool {
	if b, ok := settings[key].(bool); ok {
		return b
	}
	return defaultVal
}

// GetDuration reads a duration. Strings use Go syntax with an optional day
// suffix ("14d"); numbers are nanoseconds, matching encoding/json.
func GetDuration(settings map[string]any, key string, defaultVal time.Duration) time.Duration {
	switch v := settings[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := parseDurationWithDays(v); err == nil {
			return d
		}
		return defaultVal
	}
	if n, ok := toNumber[int64](settings[key]); ok {
		return time.Duration(n)
	}
	return defaultVal
}
