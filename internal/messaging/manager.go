package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"litscope/internal/config"
	"litscope/internal/errors"
)

// Manager manages the messaging system lifecycle: connection, publisher,
// subscriber, and background health/metrics goroutines.
type Manager struct {
	client     *Client
	publisher  *EventPublisher
	subscriber *EventSubscriber
	config     *config.NATSConfig
	logger     *slog.Logger

	started bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewManager creates a new messaging manager.
func NewManager(cfg *config.NATSConfig, logger *slog.Logger) (*Manager, error) {
	client, err := NewClient(*cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	return &Manager{
		client:     client,
		publisher:  NewEventPublisher(client, logger),
		subscriber: NewEventSubscriber(client, logger),
		config:     cfg,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start starts the messaging manager's background health and metrics loops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("messaging manager already started")
	}
	if !m.client.IsConnected() {
		return errors.NewMessagingError("NATS client is not connected", nil)
	}

	m.wg.Add(2)
	go m.healthMonitor(ctx)
	go m.metricsCollector(ctx)

	m.started = true
	m.logger.Info("messaging manager started", slog.String("url", m.client.ConnectedURL()))
	return nil
}

// Stop stops background loops, unsubscribes, and closes the connection.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Info("stopping messaging manager")
	close(m.stopCh)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		m.logger.Warn("timeout waiting for messaging goroutines to stop")
	}

	if err := m.subscriber.UnsubscribeAll(); err != nil {
		m.logger.Error("failed to unsubscribe from all subjects", slog.String("error", err.Error()))
	}
	if err := m.client.Drain(); err != nil {
		m.logger.Error("failed to drain NATS connection", slog.String("error", err.Error()))
	}
	if err := m.client.Close(); err != nil {
		m.logger.Error("failed to close NATS connection", slog.String("error", err.Error()))
	}

	m.started = false
	return nil
}

// Publisher returns the event publisher.
func (m *Manager) Publisher() *EventPublisher { return m.publisher }

// Subscriber returns the event subscriber.
func (m *Manager) Subscriber() *EventSubscriber { return m.subscriber }

// Client returns the underlying NATS client.
func (m *Manager) Client() *Client { return m.client }

// IsHealthy returns true if the messaging system is healthy.
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started && m.client.IsConnected()
}

// GetStats returns messaging statistics for diagnostics.
func (m *Manager) GetStats() map[string]interface{} {
	natsStats := m.client.Stats()
	return map[string]interface{}{
		"connection": map[string]interface{}{
			"connected":     m.client.IsConnected(),
			"connected_url": m.client.ConnectedURL(),
			"in_msgs":       natsStats.InMsgs,
			"out_msgs":      natsStats.OutMsgs,
			"reconnects":    natsStats.Reconnects,
		},
		"subscriptions": m.subscriber.GetSubscriptionInfo(),
		"manager": map[string]interface{}{
			"started": m.started,
			"healthy": m.IsHealthy(),
		},
	}
}

// Ping performs a health check by publishing a throwaway test message.
func (m *Manager) Ping(ctx context.Context) error {
	if !m.IsHealthy() {
		return errors.NewHealthCheckError("messaging system is not healthy", "messaging")
	}

	testData := map[string]interface{}{"timestamp": time.Now().UnixMilli(), "source": "messaging_manager"}
	if err := m.client.Publish(ctx, "health.ping", testData); err != nil {
		return errors.NewHealthCheckError("messaging publish failed: "+err.Error(), "messaging")
	}
	return nil
}

// SetupDefaultHandlers subscribes logging handlers to system notifications,
// health checks, ingest-completed and scoring-completed events. Ingest-started
// events are not subscribed.
func (m *Manager) SetupDefaultHandlers(ctx context.Context) error {
	if err := m.subscriber.OnSystemNotification(ctx, m.handleSystemNotification); err != nil {
		return fmt.Errorf("failed to setup system notification handler: %w", err)
	}
	if err := m.subscriber.OnHealthCheck(ctx, m.handleHealthCheck); err != nil {
		return fmt.Errorf("failed to setup health check handler: %w", err)
	}
	if err := m.subscriber.OnIngestCompleted(ctx, m.handleIngestCompleted); err != nil {
		return fmt.Errorf("failed to setup ingest completed handler: %w", err)
	}
	if err := m.subscriber.OnScoringCompleted(ctx, m.handleScoringCompleted); err != nil {
		return fmt.Errorf("failed to setup scoring completed handler: %w", err)
	}

	m.logger.Info("default event handlers setup completed")
	return nil
}

func (m *Manager) healthMonitor(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			start := time.Now()
			err := m.Ping(ctx)
			duration := time.Since(start)

			status := "healthy"
			if err != nil {
				status = "unhealthy"
				m.logger.Error("messaging health check failed", slog.String("error", err.Error()))
			}

			if publishErr := m.publisher.PublishHealthCheck(ctx, "messaging", status, duration, err); publishErr != nil {
				m.logger.Error("failed to publish health check event", slog.String("error", publishErr.Error()))
			}
		}
	}
}

func (m *Manager) metricsCollector(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.collectAndPublishMetrics(ctx)
		}
	}
}

func (m *Manager) collectAndPublishMetrics(ctx context.Context) {
	stats := m.client.Stats()

	metrics := []struct {
		name  string
		value float64
	}{
		{"nats_messages_in_total", float64(stats.InMsgs)},
		{"nats_messages_out_total", float64(stats.OutMsgs)},
		{"nats_reconnects_total", float64(stats.Reconnects)},
	}

	for _, metric := range metrics {
		if err := m.publisher.PublishMetrics(ctx, metric.name, "counter", "messaging", metric.value, nil); err != nil {
			m.logger.Error("failed to publish metric", slog.String("metric", metric.name), slog.String("error", err.Error()))
		}
	}
}

func (m *Manager) handleSystemNotification(event *SystemNotificationEvent) error {
	level := slog.LevelInfo
	switch event.Severity {
	case "low":
		level = slog.LevelDebug
	case "medium":
		level = slog.LevelWarn
	case "high", "critical":
		level = slog.LevelError
	}

	m.logger.Log(context.Background(), level, "system notification received",
		slog.String("id", event.ID), slog.String("type", event.Type),
		slog.String("title", event.Title), slog.String("component", event.Component))
	return nil
}

func (m *Manager) handleHealthCheck(event *HealthCheckEvent) error {
	if event.Status != "healthy" {
		m.logger.Warn("component health check failed",
			slog.String("component", event.Component), slog.String("status", event.Status),
			slog.String("error", event.Error))
	}
	return nil
}

func (m *Manager) handleIngestCompleted(event *IngestCompletedEvent) error {
	m.logger.Info("ingest completed",
		slog.Any("search_id", event.SearchID), slog.Int("articles_ingested", event.ArticlesIngested))
	return nil
}

func (m *Manager) handleScoringCompleted(event *ScoringCompletedEvent) error {
	m.logger.Info("scoring completed",
		slog.Any("search_id", event.SearchID), slog.Float64("overall", event.Overall))
	return nil
}

// StreamManager provides JetStream management functionality.
type StreamManager struct {
	client *Client
	logger *slog.Logger
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client, logger *slog.Logger) *StreamManager {
	return &StreamManager{client: client, logger: logger}
}

// GetStreamHealth returns health information for the pipeline's JetStream
// streams.
func (sm *StreamManager) GetStreamHealth(ctx context.Context) (map[string]interface{}, error) {
	streamNames := []string{"SEARCH", "NOTIFICATIONS"}
	health := make(map[string]interface{})

	for _, streamName := range streamNames {
		info, err := sm.client.GetStreamInfo(streamName)
		if err != nil {
			health[streamName] = map[string]interface{}{"status": "error", "error": err.Error()}
			continue
		}
		health[streamName] = map[string]interface{}{
			"status":   "healthy",
			"messages": info.State.Msgs,
			"bytes":    info.State.Bytes,
		}
	}
	return health, nil
}
