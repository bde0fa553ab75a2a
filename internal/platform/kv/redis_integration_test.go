//go:build integration

package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditgate/internal/platform/kv"
	"creditgate/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	store := kv.NewRedis(rc.Client, "creditgate:")

	t.Run("absent key is not an error", func(t *testing.T) {
		v, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "guest:device-1", `{"used":true}`))

		v, ok, err := store.Get(ctx, "guest:device-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"used":true}`, v)
	})

	t.Run("set replaces the previous value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "window:device-2", "first"))
		require.NoError(t, store.Set(ctx, "window:device-2", "second"))

		v, ok, err := store.Get(ctx, "window:device-2")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", v)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "guest:device-3", "x"))
		require.NoError(t, store.Delete(ctx, "guest:device-3"))

		_, ok, err := store.Get(ctx, "guest:device-3")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, store.Delete(ctx, "guest:device-3"), "deleting an absent key is a no-op")
	})

	t.Run("prefixes keep instances apart", func(t *testing.T) {
		other := kv.NewRedis(rc.Client, "other:")
		require.NoError(t, store.Set(ctx, "shared", "mine"))

		_, ok, err := other.Get(ctx, "shared")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
