//go:build integration

package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisRevocationStore(t *testing.T) {
	client := newRedisClient(t)
	store := NewRedisRevocationStore(client)
	ctx := context.Background()

	t.Run("logout writes a jti key that expires with the token", func(t *testing.T) {
		claims := claimsIssuedAt(uuid.NewString(), time.Now().Add(-time.Minute))

		require.NoError(t, store.RevokeToken(ctx, claims.ID, 10*time.Minute))

		ttl, err := client.TTL(ctx, "petshop:revoked:jti:"+claims.ID).Result()
		require.NoError(t, err)
		assert.InDelta(t, (10 * time.Minute).Seconds(), ttl.Seconds(), 2)

		revoked, err := store.IsRevoked(ctx, claims)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("deactivation stores the cut-off in milliseconds", func(t *testing.T) {
		user := uuid.NewString()
		before := time.Now()

		require.NoError(t, store.RevokeUser(ctx, user, time.Hour))

		raw, err := client.Get(ctx, "petshop:revoked:user:"+user).Result()
		require.NoError(t, err)
		cutoff, err := strconv.ParseInt(raw, 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cutoff, before.UnixMilli())

		revoked, err := store.IsRevoked(ctx, claimsIssuedAt(user, before.Add(-time.Minute)))
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = store.IsRevoked(ctx, claimsIssuedAt(user, before.Add(time.Minute)))
		require.NoError(t, err)
		assert.False(t, revoked, "a session opened after the cut-off stays valid")
	})

	t.Run("unknown token and user", func(t *testing.T) {
		revoked, err := store.IsRevoked(ctx, claimsIssuedAt(uuid.NewString(), time.Now()))
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("corrupt cut-off is reported", func(t *testing.T) {
		user := uuid.NewString()
		require.NoError(t, client.Set(ctx, UserKey(user), "yesterday", time.Minute).Err())

		_, err := store.IsRevoked(ctx, claimsIssuedAt(user, time.Now()))
		assert.Error(t, err)
	})

	t.Run("client error surfaces", func(t *testing.T) {
		closed := redis.NewClient(&redis.Options{Addr: client.Options().Addr})
		require.NoError(t, closed.Close())

		_, err := NewRedisRevocationStore(closed).IsRevoked(ctx, claimsIssuedAt(uuid.NewString(), time.Now()))
		assert.Error(t, err)
	})
}
