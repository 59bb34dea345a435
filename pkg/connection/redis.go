package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	redis "github.com/redis/go-redis/v9"
)

const DefaultRedisAddr = "localhost:6379"

// RedisClient hands out a live redis client.
type RedisClient interface {
	Client() (redis.UniversalClient, error)
}

// Redis owns a go-redis client. The client is created and pinged on Start
// and closed on Close, so a connection can be cycled many times.
type Redis struct {
	*Shared

	Addr     string
	Password string
	DB       int

	mu     sync.RWMutex
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedis(addr, password string, db int, logger *slog.Logger) *Redis {
	if addr == "" {
		addr = DefaultRedisAddr
	}

	return &Redis{
		Shared:   NewShared(),
		Addr:     addr,
		Password: password,
		DB:       db,
		logger:   logger.With("module", "redis_connection", "addr", addr),
	}
}

func (r *Redis) Start(ctx context.Context) error {
	ok, err := r.tracker.ToStart()
	if err != nil || !ok {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		r.client = redis.NewClient(&redis.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		_ = r.client.Close()
		r.client = nil

		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "db", r.DB)
	r.tracker.Set(models.StateStarted)

	return nil
}

func (r *Redis) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}

		r.client = nil
	}

	return r.Shared.Close(ctx)
}

// Client returns the live client, or ErrNotConnected before Start.
func (r *Redis) Client() (redis.UniversalClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return nil, ErrNotConnected
	}

	return r.client, nil
}

var (
	_ protocol.Connection = (*Redis)(nil)
	_ RedisClient         = (*Redis)(nil)
)
