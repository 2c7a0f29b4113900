package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suvro-04/Driving-alert-system/common/config"
)

func TestNewRedisClient_Options(t *testing.T) {
	client := NewRedisClient(&config.RedisConfig{
		Addr:          "redis:6380",
		Password:      "secret",
		DB:            2,
		PoolSize:      16,
		DialTimeoutMS: 250,
	})
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "redis:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 16, opts.PoolSize)
	assert.Equal(t, 250*time.Millisecond, opts.DialTimeout)
}

func TestNewRedisClient_Defaults(t *testing.T) {
	client := NewRedisClient(&config.RedisConfig{Addr: "localhost:6379"})
	defer client.Close()

	// 未设置时由 go-redis 填充默认值
	opts := client.Options()
	assert.Positive(t, opts.PoolSize)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
}

func TestConnect_Unreachable(t *testing.T) {
	client, err := Connect(context.Background(), &config.RedisConfig{Addr: "127.0.0.1:1", DialTimeoutMS: 200})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
