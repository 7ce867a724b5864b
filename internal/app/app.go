package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/bgvotp/internal/pkg/hash"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/mail"
	"github.com/shandysiswandi/bgvotp/internal/pkg/messaging"
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
	"github.com/shandysiswandi/bgvotp/internal/pkg/sms"
	"github.com/shandysiswandi/bgvotp/internal/pkg/storage"
	"github.com/shandysiswandi/bgvotp/internal/pkg/throttle"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
)

type App struct {
	// canceled first on shutdown, stops consumers and retry loops
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	argon2id  hash.Hash
	snowflake uid.NumberID
	ulid      uid.StringID
	uuid      uid.StringID
	jwt       jwt.JWT

	db        *pgxpool.Pool
	redis     *redis.Client
	throttle  throttle.Throttle
	mail      mail.Mail
	sms       sms.SMS
	messaging messaging.Messaging
	storage   storage.Storage
	enforcer  *casbin.Enforcer

	router     *router.Router
	httpServer *http.Server

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New builds every dependency and registers the enabled modules. It exits
// the process on the first step that fails.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"jwt", a.initJWT},
		{"database", a.initDatabase},
		{"migration", a.initMigration},
		{"redis", a.initRedis},
		{"mail", a.initMail},
		{"sms", a.initSMS},
		{"storage", a.initStorage},
		{"messaging", a.initMessaging},
		{"casbin", a.initCasbin},
		{"http server", a.initHTTPServer},
		{"modules", a.initModules},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			slog.Error("failed to init "+s.name, "error", err)
			os.Exit(1)
		}
	}

	a.closers = a.resourceClosers()
	return a
}

// resourceClosers lists resources in the order they are released: producers
// of work first, the stores they write to after.
func (a *App) resourceClosers() []closer {
	noCtx := func(fn func() error) func(context.Context) error {
		return func(context.Context) error { return fn() }
	}

	return []closer{
		{name: "messaging", fn: noCtx(a.messaging.Close)},
		{name: "mail", fn: noCtx(a.mail.Close)},
		{name: "sms", fn: noCtx(a.sms.Close)},
		{name: "redis", fn: noCtx(a.redis.Close)},
		{name: "database", fn: noCtx(func() error { a.db.Close(); return nil })},
		{name: "storage", fn: noCtx(a.storage.Close)},
		{name: "instrument", fn: a.ins.Shutdown},
		{name: "config", fn: noCtx(a.config.Close)},
	}
}
