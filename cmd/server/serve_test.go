package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/config"
)

func testConfig(t *testing.T, addr string) *config.Config {
	t.Helper()
	t.Setenv("DB_DSN", ":memory:")
	t.Setenv("HTTP_ADDR", addr)
	t.Setenv("LOG_LEVEL", "panic")
	cfg, err := config.Parse()
	require.NoError(t, err)
	return cfg
}

func TestServe_ReturnsListenError(t *testing.T) {
	// GIVEN: the configured port is already taken
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	// WHEN: the server starts on it
	err = serve(context.Background(), testConfig(t, busy.Addr().String()))

	// THEN: the failure reaches the caller
	assert.Error(t, err)
}

func TestServe_StopsCleanlyWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := serve(ctx, testConfig(t, "127.0.0.1:0"))

	assert.NoError(t, err)
}
