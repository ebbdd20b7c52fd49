// Package core wires the durable session store backend selected by config.
package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/onsamiro-welfare-service/onsae-console/config"
	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
	"github.com/onsamiro-welfare-service/onsae-console/internal/core/repository"
)

// Store bundles a SessionStore with the close function for whatever backend
// connection it holds.
type Store struct {
	Sessions domain.SessionStore
	close    func()
}

// Close releases the backend connection, if any.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Connect builds the session store configured by cfg.Session.Backend and
// verifies backend connectivity before returning.
func Connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	ttl := cfg.GetSessionTTLDuration()

	switch cfg.Session.Backend {
	case "memory":
		return &Store{Sessions: repository.NewMemorySessionStore(ttl)}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &Store{
			Sessions: repository.NewRedisSessionStore(client, ttl),
			close:    func() { _ = client.Close() },
		}, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Session.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &Store{
			Sessions: repository.NewPgxSessionStore(pool, ttl),
			close:    pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}
