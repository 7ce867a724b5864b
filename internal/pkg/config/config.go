package config

import (
	"io"
	"time"
)

// TimeConfig reads integer values scaled to a duration unit.
type TimeConfig interface {
	// GetSecond reads key as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads key as a number of minutes.
	GetMinute(key string) time.Duration
	// GetDay reads key as a number of 24h days.
	GetDay(key string) time.Duration
}

// Config is the read side of the service configuration. Missing keys return
// the zero value of the requested type.
type Config interface {
	io.Closer
	TimeConfig

	GetInt(key string) int
	GetInt32(key string) int32
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetArray accepts a YAML list or a "a,b,c" string (the env override form).
	// Blank elements are dropped.
	GetArray(key string) []string

	// GetMap accepts a YAML mapping or a "k1:v1,k2:v2" string.
	GetMap(key string) map[string]string
}
