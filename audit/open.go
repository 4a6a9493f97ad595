package audit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sitegate/config"
	"sitegate/utils"
)

// Open connects the backend named by cfg.AuditStore.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.AuditStore {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("AUDIT_STORE=postgres needs DATABASE_URL")
		}
		pool, err := utils.OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("audit store ready", zap.String("backend", "postgres"))
		return store, nil

	case "redis":
		client, err := utils.OpenRedisPool(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if cfg.AuditRetention < cfg.FailureWindow {
			logger.Warn("audit retention is shorter than the failure window; old failures will be forgotten early",
				zap.Duration("retention", cfg.AuditRetention),
				zap.Duration("window", cfg.FailureWindow))
		}
		logger.Info("audit store ready", zap.String("backend", "redis"))
		return NewRedisStore(client, cfg.AuditRetention), nil

	case "mongo":
		store, err := NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info("audit store ready", zap.String("backend", "mongo"), zap.String("database", cfg.MongoDatabase))
		return store, nil

	case "memory":
		logger.Warn("using in-memory audit store; failure counts are lost on restart")
		return NewMemoryStore(nil), nil
	}
	return nil, fmt.Errorf("unknown audit store %q", cfg.AuditStore)
}
