// Package backend opens the remote store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/okian/avalia/internal/adapters/remote"
	"github.com/okian/avalia/internal/adapters/remote/pgstore"
	"github.com/okian/avalia/internal/adapters/remote/redisstore"
	"github.com/okian/avalia/internal/adapters/remote/s3store"
	"github.com/okian/avalia/internal/config"
	"github.com/okian/avalia/pkg/logger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the remote store for cfg and a closer for its connection.
// Connections are lazy: an unreachable backend does not fail startup, the
// bootstrap fetch reports it instead. An incomplete configuration yields
// remote.Disabled.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (remote.Store, io.Closer, error) {
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("remote")

	if !cfg.RemoteConfigured() {
		if cfg.Driver() != config.DriverNone {
			log.Warn(ctx, "remote driver selected but not fully configured, running local-only",
				logger.String("driver", cfg.Driver()))
		}
		return remote.Disabled{}, nopCloser{}, nil
	}

	switch cfg.Driver() {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Info(ctx, "using redis remote store",
			logger.String("addr", cfg.RedisAddr),
			logger.String("namespace", cfg.RedisNamespace))
		return redisstore.New(client, cfg.RedisNamespace), client, nil

	case config.DriverPostgres:
		db, err := sqlx.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		s, err := pgstore.New(db, cfg.PostgresTable)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		schemaCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout())
		defer cancel()
		if err := s.EnsureSchema(schemaCtx); err != nil {
			log.Warn(ctx, "could not ensure postgres schema", logger.Error(err))
		}
		log.Info(ctx, "using postgres remote store", logger.String("table", cfg.PostgresTable))
		return s, db, nil

	case config.DriverS3:
		s, err := s3store.Open(s3store.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info(ctx, "using s3 remote store",
			logger.String("endpoint", cfg.S3Endpoint),
			logger.String("bucket", cfg.S3Bucket))
		return s, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", remote.ErrUnknownDriver, cfg.RemoteDriver)
	}
}
