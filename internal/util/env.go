package util

import (
	"encoding/json"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// GetEnv returns the env variable identified by key or defaultVal if unset.
func GetEnv(key string, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

// GetEnvAsInt returns the env variable as int or defaultVal if unset/invalid.
func GetEnvAsInt(key string, defaultVal int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Failed to parse env as int, using default")
		return defaultVal
	}
	return i
}

// GetEnvAsDuration returns the env variable as time.Duration or defaultVal.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Failed to parse env as duration, using default")
		return defaultVal
	}
	return d
}

// GetEnvAsJSON unmarshals the env variable into target, leaving target
// untouched if the variable is unset or malformed.
func GetEnvAsJSON(key string, target interface{}) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		log.Warn().Str("key", key).Msg("GetEnvAsJSON target must be a non-nil pointer")
		return
	}
	// 先解码到临时值：json.Unmarshal 解析数组中途失败时会留下半填充的
	// 结果，直接写 target 会破坏默认值
	tmp := reflect.New(rv.Type().Elem())
	if err := json.Unmarshal([]byte(v), tmp.Interface()); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to parse env as JSON, using default")
		return
	}
	rv.Elem().Set(tmp.Elem())
}
