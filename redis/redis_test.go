package redis

import (
	"context"
	"io"
	"testing"

	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/logging"
	"github.com/wyfcoding/bloomlab/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ObservesCommands(t *testing.T) {
	m := metrics.NewMetrics("redis-test")
	client := New(config.RedisConfig{Addr: "127.0.0.1:1"}, m)
	t.Cleanup(func() { _ = client.Close() })

	assert.Error(t, client.Ping(context.Background()).Err())
	n, err := testutil.GatherAndCount(m.Registry(), "redis_command_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewClient_Unreachable(t *testing.T) {
	logger := logging.NewFromConfig(logging.Config{Service: "bloomlab", Module: "redis", Writer: io.Discard})
	client, cleanup, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, nil, logger)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Nil(t, cleanup)
}
