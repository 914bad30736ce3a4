package credentials_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Runs only against a real server: SHOPCTL_TEST_REDIS_ADDR=localhost:6379
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SHOPCTL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHOPCTL_TEST_REDIS_ADDR not set")
	}

	key := "test:" + uuid.NewString()
	store, err := credentials.NewRedisStore(credentials.RedisConfig{Addr: addr}, key)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Clear()
		store.Close()
	})

	pair := token.Pair{Access: "a", Refresh: "r"}
	require.NoError(t, store.Save(pair))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, pair, *loaded)

	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	t.Run("corrupt value is absent", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		require.NoError(t, client.Set(context.Background(), key, "{{", 0).Err())

		loaded, err := store.Load()
		require.NoError(t, err)
		require.Nil(t, loaded)
	})
}
