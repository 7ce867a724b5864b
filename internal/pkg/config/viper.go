package config

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces env overrides, e.g. BGVOTP_DATABASE_URL for database.url.
const EnvPrefix = "BGVOTP"

var ErrConfigTypeRequired = errors.New("config: config type is required")

var defaults = map[string]any{
	"modules.otp.ttl_seconds":                    300,
	"modules.otp.max_attempts":                   3,
	"modules.otp.rate_limit.max":                 3,
	"modules.otp.rate_limit.window_seconds":      300,
	"modules.otp.rate_limit.retry_after_seconds": 300,
	"modules.otp.resend_cooldown_seconds":        60,
	"modules.otp.refresh_token_ttl_days":         7,
	"modules.otp.reveal_unknown_account":         false,
	"modules.otp.export.presign_ttl_minutes":     15,
	"database.migrate_on_start":                  false,
	"app.server.max_goroutine":                   0,
	"app.server.shutdown_timeout_seconds":        10,
	"bootstrap.ping_timeout_seconds":             30,
}

type Viper struct {
	v *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v
}

// NewViper reads the file at filename, format taken from its extension, and
// reloads it whenever the file changes on disk.
func NewViper(filename string) (*Viper, error) {
	v := newViper()
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(ev fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "file", ev.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", ev.Name, "op", ev.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes is used by tests and by embedded configs. configType is
// any format viper understands ("yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	configType = strings.TrimSpace(configType)
	if configType == "" {
		return nil, ErrConfigTypeRequired
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &Viper{v: v}, nil
}

func (c *Viper) GetInt(key string) int              { return c.v.GetInt(key) }
func (c *Viper) GetInt32(key string) int32          { return c.v.GetInt32(key) }
func (c *Viper) GetBool(key string) bool            { return c.v.GetBool(key) }
func (c *Viper) GetFloat64(key string) float64      { return c.v.GetFloat64(key) }
func (c *Viper) GetString(key string) string        { return c.v.GetString(key) }
func (c *Viper) GetSecond(key string) time.Duration { return c.scaled(key, time.Second) }
func (c *Viper) GetMinute(key string) time.Duration { return c.scaled(key, time.Minute) }
func (c *Viper) GetDay(key string) time.Duration    { return c.scaled(key, 24*time.Hour) }

func (c *Viper) scaled(key string, unit time.Duration) time.Duration {
	return time.Duration(c.v.GetInt64(key)) * unit
}

func (c *Viper) GetArray(key string) []string {
	var items []string
	switch c.v.Get(key).(type) {
	case []any, []string:
		items = c.v.GetStringSlice(key)
	default:
		items = strings.Split(c.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(items, func(s string, _ int) string { return strings.TrimSpace(s) }))
}

func (c *Viper) GetMap(key string) map[string]string {
	if _, ok := c.v.Get(key).(map[string]any); ok {
		return c.v.GetStringMapString(key)
	}

	out := map[string]string{}
	for pair := range strings.SplitSeq(c.v.GetString(key), ",") {
		k, v, ok := strings.Cut(pair, ":")
		if k = strings.TrimSpace(k); ok && k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// Close is a no-op; the file watcher lives as long as the process.
func (c *Viper) Close() error { return nil }
