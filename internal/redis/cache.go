package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// CacheClient wraps a Redis client for basket caching with cluster support
type CacheClient struct {
	client    redis.UniversalClient // Universal client supports both single and cluster
	ttl       time.Duration
	keyPrefix string
}

// NewCacheClient creates a new Redis cache client. Several addresses with
// clusterMode set connect to a Redis Cluster.
func NewCacheClient(addrs []string, password string, clusterMode bool, poolSize int, ttl time.Duration, keyPrefix string) *CacheClient {
	var client redis.UniversalClient

	if clusterMode {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:          addrs,
			Password:       password,
			MaxRetries:     3,
			PoolSize:       poolSize,
			MinIdleConns:   2,
			PoolTimeout:    30 * time.Second,
			MaxRedirects:   8,
			RouteByLatency: true,
		})
	} else {
		addr := "localhost:6379"
		if len(addrs) > 0 {
			addr = addrs[0]
		}
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
			PoolSize: poolSize,
		})
	}

	return NewCacheClientFrom(client, ttl, keyPrefix)
}

// NewCacheClientFrom wraps an existing client.
func NewCacheClientFrom(client redis.UniversalClient, ttl time.Duration, keyPrefix string) *CacheClient {
	return &CacheClient{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// GetBasket retrieves a cached basket. A miss returns nil, nil.
func (c *CacheClient) GetBasket(ctx context.Context, key string) (*models.BasketSnapshot, error) {
	val, err := c.client.Get(ctx, c.basketKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to get basket from cache")
		return nil, models.NewSystemError(models.ErrorCodeCacheError, "basket_cache", "failed to get basket", err)
	}

	var snapshot models.BasketSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to unmarshal cached basket")
		return nil, fmt.Errorf("failed to unmarshal cached basket: %w", err)
	}

	log.Debug().Str("key", key).Int("items", len(snapshot.Items)).Msg("Cache hit for basket")
	return &snapshot, nil
}

// SetBasket stores a basket with the cache TTL
func (c *CacheClient) SetBasket(ctx context.Context, key string, snapshot *models.BasketSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal basket: %w", err)
	}

	if err := c.client.Set(ctx, c.basketKey(key), data, c.ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to set basket in cache")
		return models.NewSystemError(models.ErrorCodeCacheError, "basket_cache", "failed to set basket", err)
	}

	log.Debug().Str("key", key).Int("items", len(snapshot.Items)).Msg("Cached basket")
	return nil
}

// RemoveBasket deletes a cached basket
func (c *CacheClient) RemoveBasket(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.basketKey(key)).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete basket from cache")
		return models.NewSystemError(models.ErrorCodeCacheError, "basket_cache", "failed to delete basket", err)
	}

	log.Debug().Str("key", key).Msg("Deleted basket from cache")
	return nil
}

// Ping checks if Redis is available
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.client.Close()
}

func (c *CacheClient) basketKey(key string) string {
	return c.keyPrefix + key
}
