package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundflow/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), SinaRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed, "requests are allowed when Redis is disabled")
	assert.Equal(t, SinaRateLimit.Limit, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), SinaRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLFundFlow))
	assert.NoError(t, cache.DeletePattern(ctx, "fundflow:"))
}

func TestCache_GetOrSetFallsThrough(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	var got []int
	calls := 0
	err := cache.GetOrSet(context.Background(), "k", &got, TTLFundFlow, func() (interface{}, error) {
		calls++
		return []int{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int{1, 2, 3}, got)

	boom := errors.New("boom")
	err = cache.GetOrSet(context.Background(), "k", &got, TTLFundFlow, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestFundFlowKey(t *testing.T) {
	assert.Equal(t, "fundflow:sh.600519:2023-01-01:2023-12-31", FundFlowKey("sh.600519", "2023-01-01", "2023-12-31"))
}

func TestFundFlowPatternPrefixesKeys(t *testing.T) {
	key := FundFlowKey("sz.000001", "", "")
	assert.True(t, strings.HasPrefix(key, FundFlowPattern("sz.000001")))
	assert.False(t, strings.HasPrefix(FundFlowKey("sz.0000010", "", ""), FundFlowPattern("sz.000001")))
}
