package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// MessageHandler represents a function that handles incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents a NATS message.
type Message struct {
	Subject      string
	Data         []byte
	Headers      nats.Header
	ReplySubject string
	msg          *nats.Msg     // core NATS message
	jsMsg        jetstream.Msg // JetStream message
}

// Subscription represents a NATS subscription.
type Subscription struct {
	sub    *nats.Subscription
	logger *slog.Logger
}

// Ack acknowledges the message (for JetStream).
func (m *Message) Ack() error {
	if m.jsMsg != nil {
		return m.jsMsg.Ack()
	}
	return nil
}

// Nak negative-acknowledges the message (for JetStream).
func (m *Message) Nak() error {
	if m.jsMsg != nil {
		return m.jsMsg.Nak()
	}
	return nil
}

// Reply sends a reply to the message.
func (m *Message) Reply(data interface{}) error {
	if m.ReplySubject == "" {
		return fmt.Errorf("no reply subject")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	if m.msg != nil {
		return m.msg.Respond(payload)
	}
	return fmt.Errorf("no underlying message to reply to")
}

// Unmarshal unmarshals the message data into v.
func (m *Message) Unmarshal(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

// GetHeader returns a header value.
func (m *Message) GetHeader(key string) string {
	return m.Headers.Get(key)
}

// Unsubscribe unsubscribes from the subscription.
func (s *Subscription) Unsubscribe() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	s.logger.Info("unsubscribed from subject", slog.String("subject", s.sub.Subject))
	return nil
}

// IsValid returns true if the subscription is still valid.
func (s *Subscription) IsValid() bool {
	return s.sub.IsValid()
}

// PendingMessages returns the number of pending messages.
func (s *Subscription) PendingMessages() (int, int, error) {
	return s.sub.Pending()
}

// Subject returns the subscription subject.
func (s *Subscription) Subject() string {
	return s.sub.Subject
}

// Queue returns the subscription queue group, if any.
func (s *Subscription) Queue() string {
	return s.sub.Queue
}

// Pipeline lifecycle events. These are the wire payloads the Coordinator's
// Notifier publishes, per spec.md's supplemented event-bus feature.

// IngestStartedEvent marks the beginning of a Search's ingestion.
type IngestStartedEvent struct {
	SearchID  uint  `json:"search_id"`
	Timestamp int64 `json:"timestamp"`
}

// IngestCompletedEvent marks ingestion completion for a Search.
type IngestCompletedEvent struct {
	SearchID         uint  `json:"search_id"`
	ArticlesIngested int   `json:"articles_ingested"`
	Timestamp        int64 `json:"timestamp"`
}

// ScoringCompletedEvent carries the final normalized opportunity score for
// a Search.
type ScoringCompletedEvent struct {
	SearchID  uint    `json:"search_id"`
	Novelty   float64 `json:"novelty"`
	Velocity  float64 `json:"velocity"`
	Recency   float64 `json:"recency"`
	Overall   float64 `json:"overall"`
	Timestamp int64   `json:"timestamp"`
}

// SystemNotificationEvent represents a system notification.
type SystemNotificationEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // info, warning, error, alert
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Component string                 `json:"component"`
	Severity  string                 `json:"severity"` // low, medium, high, critical
	Timestamp int64                  `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// HealthCheckEvent represents a health check event.
type HealthCheckEvent struct {
	Component    string                 `json:"component"`
	Status       string                 `json:"status"` // healthy, unhealthy, degraded
	Timestamp    int64                  `json:"timestamp"`
	ResponseTime int64                  `json:"response_time_ms"`
	Error        string                 `json:"error,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// MetricsEvent represents a metrics collection event.
type MetricsEvent struct {
	MetricName string            `json:"metric_name"`
	MetricType string            `json:"metric_type"` // counter, gauge, histogram
	Value      float64           `json:"value"`
	Labels     map[string]string `json:"labels,omitempty"`
	Timestamp  int64             `json:"timestamp"`
	Component  string            `json:"component"`
}

// Message subjects, namespaced by pipeline stage.
const (
	SubjectIngestStarted      = "search.ingest.started"
	SubjectIngestCompleted    = "search.ingest.completed"
	SubjectScoringCompleted   = "search.scoring.completed"
	SubjectNotificationSystem = "notifications.system"
	SubjectAlertHealthCheck   = "alerts.health_check"
	SubjectMetricsApplication = "metrics.application"
)

// Publisher publishes messages to subjects.
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	PublishAsync(ctx context.Context, subject string, data interface{}) error
}

// Subscriber subscribes to subjects.
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (*Subscription, error)
	SubscribeQueue(ctx context.Context, subject, queue string, handler MessageHandler) (*Subscription, error)
}

// NewSystemNotificationEvent creates a new system notification event.
func NewSystemNotificationEvent(seq uint64, notifType, title, message, component, severity string) *SystemNotificationEvent {
	return &SystemNotificationEvent{
		ID:        generateEventID(seq),
		Type:      notifType,
		Title:     title,
		Message:   message,
		Component: component,
		Severity:  severity,
		Timestamp: currentTimestamp(),
	}
}

func currentTimestamp() int64 {
	return time.Now().UnixMilli()
}

func generateEventID(seq uint64) string {
	return fmt.Sprintf("evt_%d_%d", currentTimestamp(), seq)
}
