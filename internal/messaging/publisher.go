package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"litscope/internal/errors"
)

// EventPublisher provides high-level publishing of pipeline lifecycle
// events over the underlying Client.
type EventPublisher struct {
	client *Client
	logger *slog.Logger
	seq    atomic.Uint64
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher(client *Client, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{client: client, logger: logger}
}

// PublishIngestStarted publishes an ingest-started event for searchID.
func (p *EventPublisher) PublishIngestStarted(ctx context.Context, searchID uint) error {
	event := &IngestStartedEvent{SearchID: searchID, Timestamp: currentTimestamp()}

	if err := p.client.PublishAsync(ctx, SubjectIngestStarted, event); err != nil {
		return fmt.Errorf("failed to publish ingest started event: %w", err)
	}
	p.logger.Debug("published ingest started event", slog.Any("search_id", searchID))
	return nil
}

// PublishIngestCompleted publishes an ingest-completed event for searchID.
func (p *EventPublisher) PublishIngestCompleted(ctx context.Context, searchID uint, articlesIngested int) error {
	event := &IngestCompletedEvent{SearchID: searchID, ArticlesIngested: articlesIngested, Timestamp: currentTimestamp()}

	if err := p.client.PublishAsync(ctx, SubjectIngestCompleted, event); err != nil {
		return fmt.Errorf("failed to publish ingest completed event: %w", err)
	}
	p.logger.Debug("published ingest completed event",
		slog.Any("search_id", searchID), slog.Int("articles_ingested", articlesIngested))
	return nil
}

// PublishScoringCompleted publishes the final normalized score for searchID.
func (p *EventPublisher) PublishScoringCompleted(ctx context.Context, searchID uint, novelty, velocity, recency, overall float64) error {
	event := &ScoringCompletedEvent{
		SearchID:  searchID,
		Novelty:   novelty,
		Velocity:  velocity,
		Recency:   recency,
		Overall:   overall,
		Timestamp: currentTimestamp(),
	}

	if err := p.client.PublishAsync(ctx, SubjectScoringCompleted, event); err != nil {
		return fmt.Errorf("failed to publish scoring completed event: %w", err)
	}
	p.logger.Debug("published scoring completed event",
		slog.Any("search_id", searchID), slog.Float64("overall", overall))
	return nil
}

// PublishSystemNotification publishes a system notification.
func (p *EventPublisher) PublishSystemNotification(ctx context.Context, notifType, title, message, component, severity string, metadata map[string]interface{}) error {
	event := NewSystemNotificationEvent(p.seq.Add(1), notifType, title, message, component, severity)
	event.Metadata = metadata

	if err := p.client.PublishAsync(ctx, SubjectNotificationSystem, event); err != nil {
		return fmt.Errorf("failed to publish system notification: %w", err)
	}
	p.logger.Info("published system notification",
		slog.String("type", notifType), slog.String("title", title), slog.String("component", component))
	return nil
}

// PublishHealthCheck publishes a health check event.
func (p *EventPublisher) PublishHealthCheck(ctx context.Context, component, status string, responseTime time.Duration, err error) error {
	event := &HealthCheckEvent{
		Component:    component,
		Status:       status,
		Timestamp:    currentTimestamp(),
		ResponseTime: responseTime.Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
	}

	if pubErr := p.client.PublishAsync(ctx, SubjectAlertHealthCheck, event); pubErr != nil {
		return fmt.Errorf("failed to publish health check event: %w", pubErr)
	}
	return nil
}

// PublishMetrics publishes a single metrics sample.
func (p *EventPublisher) PublishMetrics(ctx context.Context, metricName, metricType, component string, value float64, labels map[string]string) error {
	event := &MetricsEvent{
		MetricName: metricName,
		MetricType: metricType,
		Value:      value,
		Labels:     labels,
		Timestamp:  currentTimestamp(),
		Component:  component,
	}

	if err := p.client.PublishAsync(ctx, SubjectMetricsApplication, event); err != nil {
		return fmt.Errorf("failed to publish metrics event: %w", err)
	}
	return nil
}

// PublishError publishes a high-severity system notification derived from
// a pipeline error, surfacing its typed classification when available.
func (p *EventPublisher) PublishError(ctx context.Context, component, title, message string, err error) error {
	metadata := map[string]interface{}{}
	if err != nil {
		metadata["error"] = err.Error()
		if pErr, ok := err.(*errors.PipelineError); ok {
			metadata["error_type"] = string(pErr.Type)
			metadata["error_code"] = pErr.Code
		}
	}
	return p.PublishSystemNotification(ctx, "error", title, message, component, "high", metadata)
}
