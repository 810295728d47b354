package messaging_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litscope/internal/config"
	"litscope/internal/messaging"
)

func discardManagerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManagerConfig(url string) *config.NATSConfig {
	return &config.NATSConfig{
		URL:           url,
		ClientID:      "manager-test",
		MaxReconnects: 2,
		ReconnectWait: "1s",
		Timeout:       "5s",
	}
}

func TestManager_StartStopLifecycle(t *testing.T) {
	url := startEmbeddedServer(t)
	mgr, err := messaging.NewManager(newManagerConfig(url), discardManagerLogger())
	require.NoError(t, err)

	assert.False(t, mgr.IsHealthy())

	require.NoError(t, mgr.Start(context.Background()))
	assert.True(t, mgr.IsHealthy())

	assert.Error(t, mgr.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mgr.Stop(ctx))
	assert.False(t, mgr.IsHealthy())
}

func TestManager_PingRequiresStarted(t *testing.T) {
	url := startEmbeddedServer(t)
	mgr, err := messaging.NewManager(newManagerConfig(url), discardManagerLogger())
	require.NoError(t, err)

	assert.Error(t, mgr.Ping(context.Background()))

	require.NoError(t, mgr.Start(context.Background()))
	assert.NoError(t, mgr.Ping(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = mgr.Stop(ctx)
}

func TestManager_GetStatsReflectsConnection(t *testing.T) {
	url := startEmbeddedServer(t)
	mgr, err := messaging.NewManager(newManagerConfig(url), discardManagerLogger())
	require.NoError(t, err)
	require.NoError(t, mgr.Start(context.Background()))

	stats := mgr.GetStats()
	conn, ok := stats["connection"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, conn["connected"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = mgr.Stop(ctx)
}

func TestManager_SetupDefaultHandlers(t *testing.T) {
	url := startEmbeddedServer(t)
	mgr, err := messaging.NewManager(newManagerConfig(url), discardManagerLogger())
	require.NoError(t, err)
	require.NoError(t, mgr.Start(context.Background()))

	assert.NoError(t, mgr.SetupDefaultHandlers(context.Background()))

	require.NoError(t, mgr.Publisher().PublishIngestCompleted(context.Background(), 1, 1))
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = mgr.Stop(ctx)
}
