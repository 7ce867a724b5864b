package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/bgvotp/internal/pkg/hash"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
)

// configPath resolves CONFIG_PATH, then the container default, then the
// repo copy when LOCAL=true.
func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

func (a *App) initConfig() error {
	cfg, err := config.NewViper(configPath())
	if err != nil {
		return err
	}

	if tz := cfg.GetString("app.tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return err
		}
		time.Local = loc
	}

	a.config = cfg
	return nil
}

func (a *App) initInstrument() error {
	c := a.config
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          c.GetBool("instrument.enabled"),
		ServiceName:      c.GetString("instrument.service_name"),
		ServiceVersion:   c.GetString("instrument.service_version"),
		Environment:      c.GetString("instrument.env"),
		OTLPEndpoint:     c.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       c.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: c.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  c.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       c.GetArray("instrument.log_mask_fields"),
		TailFields:       c.GetArray("instrument.log_tail_fields"),
	})
	a.ins = ins
	return err
}

func (a *App) initLibraries() error {
	v, err := validator.NewV10Validator()
	if err != nil {
		return err
	}
	snow, err := uid.NewSnowflake()
	if err != nil {
		return err
	}

	a.validator = v
	a.snowflake = snow
	a.ulid = uid.NewULID()
	a.uuid = uid.NewUUID()
	a.clock = clock.New()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))
	a.argon2id = hash.NewArgon2id(a.config.GetString("hash.argon2id.pepper"), a.config.GetInt("hash.argon2id.max_concurrent"))
	return nil
}

func (a *App) initJWT() error {
	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	a.jwt = signer
	return err
}

// ping retries fn with capped exponential backoff for at most
// bootstrap.ping_timeout_seconds.
func (a *App) ping(name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(a.ctx, a.config.GetSecond("bootstrap.ping_timeout_seconds"))
	defer cancel()

	backoff := retry.WithCappedDuration(5*time.Second, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			slog.WarnContext(ctx, "dependency not ready", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
