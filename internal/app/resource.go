package app

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shandysiswandi/bgvotp/internal/pkg/mail"
	"github.com/shandysiswandi/bgvotp/internal/pkg/messaging"
	"github.com/shandysiswandi/bgvotp/internal/pkg/rbac"
	"github.com/shandysiswandi/bgvotp/internal/pkg/sms"
	"github.com/shandysiswandi/bgvotp/internal/pkg/storage"
	"github.com/shandysiswandi/bgvotp/internal/pkg/throttle"
	"github.com/shandysiswandi/bgvotp/migrations"
)

func (a *App) str(key string) string { return strings.TrimSpace(a.config.GetString(key)) }

func (a *App) initDatabase() error {
	cfg, err := pgxpool.ParseConfig(a.str("database.url"))
	if err != nil {
		return err
	}

	cfg.MaxConns = a.config.GetInt32("database.pool.max_conns")
	cfg.MinConns = a.config.GetInt32("database.pool.min_conns")
	cfg.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	cfg.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	cfg.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, cfg)
	if err != nil {
		return err
	}
	if err := a.ping("postgres", pool.Ping); err != nil {
		pool.Close()
		return err
	}

	a.db = pool
	return nil
}

func (a *App) initMigration() error {
	if !a.config.GetBool("database.migrate_on_start") {
		return nil
	}
	return migrations.Up(a.str("database.url"))
}

func (a *App) initRedis() error {
	opt, err := redis.ParseURL(a.str("redis.url"))
	if err != nil {
		return err
	}

	rdb := redis.NewClient(opt)
	if err := a.ping("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		return err
	}

	a.redis = rdb
	a.throttle = throttle.New(rdb)
	return nil
}

func (a *App) initMail() error {
	m, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.str("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.str("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.str("mail.from"),
	})
	a.mail = m
	return err
}

func (a *App) initSMS() error {
	client, err := sms.NewFromDriver(a.str("sms.driver"), sms.FactoryOptions{
		HTTP: sms.HTTPConfig{
			Endpoint: a.str("sms.http.endpoint"),
			APIKey:   a.str("sms.http.api_key"),
			UserID:   a.str("sms.http.user_id"),
			SenderID: a.str("sms.http.sender_id"),
			Headers:  a.config.GetMap("sms.http.headers"),
			Timeout:  a.config.GetSecond("sms.http.timeout_seconds"),
		},
	})
	a.sms = client
	return err
}

func (a *App) initStorage() error {
	stg, err := storage.NewFromDriver(a.ctx, a.str("storage.driver"), storage.FactoryOptions{
		S3: storage.S3Options{
			Region:       a.str("storage.s3.region"),
			Endpoint:     a.str("storage.s3.endpoint"),
			AccessKey:    a.str("storage.s3.access_key"),
			SecretKey:    a.str("storage.s3.secret_key"),
			SessionToken: a.str("storage.s3.session_token"),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		MinIO: storage.MinIOOptions{
			Region:       a.str("storage.minio.region"),
			Endpoint:     a.str("storage.minio.endpoint"),
			AccessKey:    a.str("storage.minio.access_key"),
			SecretKey:    a.str("storage.minio.secret_key"),
			SessionToken: a.str("storage.minio.session_token"),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		return err
	}

	if bucket := a.str("modules.otp.export.bucket"); bucket != "" {
		ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
		defer cancel()
		if err := stg.EnsureBucket(ctx, bucket); err != nil {
			return err
		}
	}

	a.storage = stg
	return nil
}

func (a *App) initMessaging() error {
	c := a.config
	client, err := messaging.NewFromDriver(a.str("messaging.driver"), messaging.FactoryOptions{
		Kafka: messaging.KafkaConfig{
			Brokers: c.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID: c.GetString("messaging.kafka.client_id"),
				Timeout:  c.GetSecond("messaging.kafka.dial_timeout_seconds"),
			},
		},
		NATS: messaging.NATSConfig{
			URL: c.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(c.GetString("messaging.nats.name")),
				nats.MaxReconnects(c.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(c.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(c.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.PingInterval(c.GetSecond("messaging.nats.ping_interval_seconds")),
				nats.MaxPingsOutstanding(c.GetInt("messaging.nats.max_pings_outstanding")),
				nats.RetryOnFailedConnect(c.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
	})
	a.messaging = client
	return err
}

func (a *App) initCasbin() error {
	e, err := rbac.NewEnforcer(rbac.NewAdapter(a.db, rbac.WithTableName("access_policies")))
	a.enforcer = e
	return err
}
