package embedded_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litscope/internal/config"
	"litscope/internal/messaging/embedded"
)

func startExternalNATS(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      port,
		JetStream: true,
		StoreDir:  filepath.Join(t.TempDir(), fmt.Sprintf("nats-store-%d", port)),
	}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(10*time.Second))

	return fmt.Sprintf("nats://127.0.0.1:%d", port)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// With Embedded.Enabled=false the embedded.Manager wraps a plain client
// against an externally-run NATS deployment, per its own docstring.
func TestManager_ExternalModeLifecycle(t *testing.T) {
	url := startExternalNATS(t)

	cfg := &config.NATSConfig{
		URL:           url,
		ClientID:      "embedded-manager-test",
		MaxReconnects: 2,
		ReconnectWait: "1s",
		Timeout:       "5s",
	}

	mgr, err := embedded.NewManager(cfg, discardLogger())
	require.NoError(t, err)
	assert.False(t, mgr.IsEmbeddedServerEnabled())
	assert.False(t, mgr.IsHealthy())

	require.NoError(t, mgr.Start(context.Background()))
	assert.True(t, mgr.IsHealthy())
	assert.True(t, mgr.IsConnected())
	assert.NotNil(t, mgr.GetClient())
	assert.NotNil(t, mgr.GetManager())
	assert.Nil(t, mgr.GetEmbeddedServer())

	assert.NoError(t, mgr.Ping(context.Background()))

	stats := mgr.GetStats()
	assert.Equal(t, false, stats["embedded_server"])
	assert.Equal(t, true, stats["healthy"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mgr.Stop(ctx))
	assert.False(t, mgr.IsHealthy())
}

func TestManager_StopBeforeStartIsNoop(t *testing.T) {
	cfg := &config.NATSConfig{URL: "nats://127.0.0.1:1", ClientID: "unused"}
	mgr, err := embedded.NewManager(cfg, discardLogger())
	require.NoError(t, err)
	assert.NoError(t, mgr.Stop(context.Background()))
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func embeddedConfig(t *testing.T) *config.NATSConfig {
	cfg := &config.NATSConfig{
		ClientID:      "embedded-server-test",
		MaxReconnects: 2,
		ReconnectWait: "1s",
		Timeout:       "5s",
	}
	cfg.Embedded.Enabled = true
	cfg.Embedded.Host = "127.0.0.1"
	cfg.Embedded.Port = freePort(t)
	cfg.JetStream.Enabled = true
	cfg.JetStream.StoreDir = filepath.Join(t.TempDir(), "jetstream")
	return cfg
}

func TestEmbeddedServer_StartStopReportsHealthAndStats(t *testing.T) {
	cfg := embeddedConfig(t)

	srv, err := embedded.NewEmbeddedServer(cfg, discardLogger())
	require.NoError(t, err)
	assert.False(t, srv.IsHealthy())

	require.NoError(t, srv.Start(context.Background()))
	assert.True(t, srv.IsHealthy())
	assert.NotEmpty(t, srv.GetClientURL())
	assert.NotEmpty(t, srv.GetServerID())

	stats := srv.GetStats()
	assert.Equal(t, true, stats["running"])
	assert.Contains(t, stats, "jetstream")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.False(t, srv.IsHealthy())
}

func TestEmbeddedServer_RejectsWhenNotEnabled(t *testing.T) {
	cfg := &config.NATSConfig{}
	_, err := embedded.NewEmbeddedServer(cfg, discardLogger())
	assert.Error(t, err)
}

// With Embedded.Enabled=true, the manager boots its own NATS server,
// rewrites config.URL to the embedded server's client URL, and then
// wraps it with the ordinary messaging.Manager lifecycle.
func TestManager_EmbeddedModeLifecycle(t *testing.T) {
	cfg := embeddedConfig(t)

	mgr, err := embedded.NewManager(cfg, discardLogger())
	require.NoError(t, err)
	assert.True(t, mgr.IsEmbeddedServerEnabled())

	require.NoError(t, mgr.Start(context.Background()))
	assert.True(t, mgr.IsHealthy())
	assert.NotNil(t, mgr.GetEmbeddedServer())
	assert.NotEmpty(t, cfg.URL)

	assert.NoError(t, mgr.Ping(context.Background()))

	stats := mgr.GetStats()
	assert.Equal(t, true, stats["embedded_server"])
	assert.Contains(t, stats, "server")
	assert.Contains(t, stats, "messaging")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, mgr.Stop(ctx))
}
