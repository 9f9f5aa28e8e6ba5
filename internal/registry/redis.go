package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tutorhub/tutor-gateway/internal/config"
)

const usersKey = "tutor:users"

// Redis is a registry backed by a Redis set
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Register(ctx context.Context, userID string) (bool, error) {
	added, err := r.client.SAdd(ctx, usersKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to register user: %w", err)
	}
	return added > 0, nil
}

func (r *Redis) List(ctx context.Context) ([]string, error) {
	users, err := r.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *Redis) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Registry = (*Redis)(nil)
