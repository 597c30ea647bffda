//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

func TestCacheClient_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, redisC.Terminate(ctx)) }()

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)

	cache := NewCacheClient([]string{endpoint}, "", false, 5, 2*time.Second, "tb:it:")
	defer cache.Close()
	require.NoError(t, cache.Ping(ctx))

	t.Run("miss", func(t *testing.T) {
		snap, err := cache.GetBasket(ctx, "basket_nobody")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("set get remove", func(t *testing.T) {
		stored := &models.BasketSnapshot{
			Items: []models.BasketEntry{{
				ReservationID: "r1",
				BikeID:        "enduro",
				Size:          models.SizeMedium,
				Quantity:      2,
				StartDate:     time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
				EndDate:       time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
			}},
			Timestamp: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		}
		require.NoError(t, cache.SetBasket(ctx, "basket_u1", stored))

		got, err := cache.GetBasket(ctx, "basket_u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "r1", got.Items[0].ReservationID)
		assert.True(t, got.Timestamp.Equal(stored.Timestamp))

		require.NoError(t, cache.RemoveBasket(ctx, "basket_u1"))
		got, err = cache.GetBasket(ctx, "basket_u1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("entries expire with the TTL", func(t *testing.T) {
		require.NoError(t, cache.SetBasket(ctx, "basket_u2", &models.BasketSnapshot{Timestamp: time.Now()}))

		raw := redis.NewClient(&redis.Options{Addr: endpoint})
		defer raw.Close()
		ttl, err := raw.TTL(ctx, "tb:it:basket_u2").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		assert.Eventually(t, func() bool {
			snap, err := cache.GetBasket(ctx, "basket_u2")
			return err == nil && snap == nil
		}, 5*time.Second, 100*time.Millisecond)
	})
}
