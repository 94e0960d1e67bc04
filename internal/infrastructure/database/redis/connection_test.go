package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bella-notte/ordering-backend/internal/config"
)

func testConfig(mr *miniredis.Miniredis) *config.Config {
	return &config.Config{Redis: config.RedisConfig{
		Host:         mr.Host(),
		Port:         mr.Port(),
		DB:           0,
		PoolSize:     4,
		MinIdleConns: 1,
		DialTimeout:  time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolTimeout:  time.Second,
	}}
}

func TestOptionsFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := Options(testConfig(mr))

	assert.Equal(t, mr.Addr(), opts.Addr)
	assert.Equal(t, 4, opts.PoolSize)
	assert.Equal(t, 1, opts.MinIdleConns)
	assert.Equal(t, 500*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, time.Second, opts.PoolTimeout)
}

func TestHealthTracksServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewConnection(testConfig(mr))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Health(context.Background()))
	assert.NotZero(t, client.Pool().TotalConns)

	mr.Close()
	assert.Error(t, client.Health(context.Background()))
}

func TestNewConnectionFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(mr)
	mr.Close()

	_, err := NewConnection(cfg)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
