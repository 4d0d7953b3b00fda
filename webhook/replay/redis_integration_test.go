//go:build integration

package replay_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisGuardAccept(t *testing.T) {
	ctx := context.Background()

	rc, cleanup := SetupRedisContainer(t, ctx)
	defer cleanup()

	t.Run("first delivery is accepted", func(t *testing.T) {
		guard := CreateTestGuard(t, rc.Addr, time.Hour)
		defer guard.Close(ctx)

		ok, err := guard.Accept(ctx, "delivery-redis-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("duplicate within TTL is rejected", func(t *testing.T) {
		guard := CreateTestGuard(t, rc.Addr, time.Hour)
		defer guard.Close(ctx)

		ok, err := guard.Accept(ctx, "delivery-redis-2")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = guard.Accept(ctx, "delivery-redis-2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("entry carries the replay TTL", func(t *testing.T) {
		guard := CreateTestGuard(t, rc.Addr, time.Hour)
		defer guard.Close(ctx)

		id := fmt.Sprintf("delivery-ttl-%d", time.Now().UnixNano())
		ok, err := guard.Accept(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)

		ttl := GetKeyTTL(t, rc.Addr, "replay:"+id)
		assert.Greater(t, ttl, int64(3500))
		assert.LessOrEqual(t, ttl, int64(3600))
	})

	t.Run("forgotten delivery is accepted again", func(t *testing.T) {
		guard := CreateTestGuard(t, rc.Addr, time.Hour)
		defer guard.Close(ctx)

		ok, err := guard.Accept(ctx, "delivery-redis-4")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, guard.Forget(ctx, "delivery-redis-4"))

		ok, err = guard.Accept(ctx, "delivery-redis-4")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired entry is accepted again", func(t *testing.T) {
		guard := CreateTestGuard(t, rc.Addr, time.Second)
		defer guard.Close(ctx)

		ok, err := guard.Accept(ctx, "delivery-redis-3")
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(1500 * time.Millisecond)

		ok, err = guard.Accept(ctx, "delivery-redis-3")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
