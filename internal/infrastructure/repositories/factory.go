package repositories

import (
	"context"
	"fmt"
	"time"

	"arenahub/internal/core/ports"
	"arenahub/internal/infrastructure/monitoring"
	"arenahub/internal/infrastructure/repositories/memory"
	"arenahub/internal/infrastructure/repositories/postgres"
	redisrepo "arenahub/internal/infrastructure/repositories/redis"
	"arenahub/pkg/config"
	"arenahub/pkg/distributed"
	"arenahub/pkg/retry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCheckTimeout = 2 * time.Second

	migrationLockKey  = "arenahub:lock:migrate"
	migrationLockTTL  = 30 * time.Second
	migrationLockWait = 2 * time.Minute
)

// RepositoryFactory creates repositories for the configured backend. The
// database is authoritative when enabled: failing to reach it is fatal.
// Redis only carries the presence relay, so a failed connection degrades to
// a process-local registry.
type RepositoryFactory struct {
	pool        *pgxpool.Pool
	redisClient *redis.Client
	logger      *zap.SugaredLogger

	// in-process fallbacks are shared so every caller sees the same state
	users      ports.UserRepository
	admins     ports.AdminRepository
	initTokens ports.InitTokenRepository
}

// NewRepositoryFactory connects the configured backends.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{logger: logger}

	if cfg.Redis.Enabled {
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = 3
		client, err := redisrepo.NewRedisClient(ctx, redisrepo.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, retryCfg, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, presence stays process local",
				"error", err,
			)
		} else {
			factory.redisClient = client
		}
	}

	if cfg.Database.Enabled {
		pool, err := postgres.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxConns, retry.DefaultConfig(), logger)
		if err != nil {
			factory.Close()
			return nil, err
		}
		factory.pool = pool
		if cfg.Database.AutoMigrate {
			if err := factory.migrate(ctx); err != nil {
				factory.Close()
				return nil, fmt.Errorf("migrate database: %w", err)
			}
			logger.Info("database migrations applied")
		}
		logger.Info("using postgres repositories")
	} else {
		factory.users = memory.NewMemoryUserRepository()
		factory.admins = memory.NewMemoryAdminRepository()
		factory.initTokens = memory.NewMemoryInitTokenRepository()
		logger.Warn("database disabled, using memory repositories")
	}

	return factory, nil
}

// migrate applies migrations. With redis available, instances starting
// together take turns through a shared lock.
func (f *RepositoryFactory) migrate(ctx context.Context) error {
	if f.redisClient == nil {
		return postgres.Migrate(ctx, f.pool)
	}

	lock := distributed.NewLock(f.redisClient, migrationLockKey, migrationLockTTL)
	if err := lock.Acquire(ctx, migrationLockWait); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			f.logger.Warnw("failed to release migration lock", "error", err)
		}
	}()
	return postgres.Migrate(ctx, f.pool)
}

func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	if f.pool != nil {
		return postgres.NewPostgresUserRepository(f.pool)
	}
	return f.users
}

func (f *RepositoryFactory) CreateAdminRepository() ports.AdminRepository {
	if f.pool != nil {
		return postgres.NewPostgresAdminRepository(f.pool)
	}
	return f.admins
}

func (f *RepositoryFactory) CreateInitTokenRepository() ports.InitTokenRepository {
	if f.pool != nil {
		return postgres.NewPostgresInitTokenRepository(f.pool)
	}
	return f.initTokens
}

// RedisClient returns nil when redis is disabled or unreachable.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

// RegisterHealthChecks adds readiness checks for every connected backend.
func (f *RepositoryFactory) RegisterHealthChecks(hc *monitoring.HealthChecker) {
	if f.pool != nil {
		hc.AddPostgresCheck(f.pool, defaultCheckTimeout)
	}
	if f.redisClient != nil {
		hc.AddRedisCheck(f.redisClient, defaultCheckTimeout)
	}
}

// Close releases backend connections.
func (f *RepositoryFactory) Close() error {
	if f.pool != nil {
		f.pool.Close()
	}
	return redisrepo.CloseRedisClient(f.redisClient)
}
