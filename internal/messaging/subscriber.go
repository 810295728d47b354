package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"litscope/internal/errors"
)

// EventSubscriber provides high-level event subscription functionality.
type EventSubscriber struct {
	client        *Client
	logger        *slog.Logger
	subscriptions map[string]*Subscription
	handlers      map[string][]MessageHandler
	mu            sync.RWMutex
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber(client *Client, logger *slog.Logger) *EventSubscriber {
	return &EventSubscriber{
		client:        client,
		logger:        logger,
		subscriptions: make(map[string]*Subscription),
		handlers:      make(map[string][]MessageHandler),
	}
}

// Subscribe registers handler for subject, multiplexing multiple handlers
// over a single underlying NATS subscription.
func (s *EventSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[subject] = append(s.handlers[subject], handler)

	if len(s.handlers[subject]) == 1 {
		sub, err := s.client.Subscribe(subject, func(m *nats.Msg) {
			msg := &Message{Subject: m.Subject, Data: m.Data, ReplySubject: m.Reply}
			s.mu.RLock()
			handlers := s.handlers[subject]
			s.mu.RUnlock()
			for _, h := range handlers {
				if err := h(context.Background(), msg); err != nil {
					s.logger.Error("handler failed", slog.String("subject", subject), slog.String("error", err.Error()))
				}
			}
		})
		if err != nil {
			delete(s.handlers, subject)
			return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.subscriptions[subject] = &Subscription{sub: sub, logger: s.logger}
	}

	return s.subscriptions[subject], nil
}

// SubscribeQueue subscribes to subject within a queue group, for load
// balancing across multiple consumers.
func (s *EventSubscriber) SubscribeQueue(ctx context.Context, subject, queue string, handler MessageHandler) (*Subscription, error) {
	key := fmt.Sprintf("%s:%s", subject, queue)

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.client.SubscribeQueue(subject, queue, func(m *nats.Msg) {
		msg := &Message{Subject: m.Subject, Data: m.Data, ReplySubject: m.Reply}
		if err := handler(context.Background(), msg); err != nil {
			s.logger.Error("queue handler failed", slog.String("subject", subject), slog.String("queue", queue), slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to queue %s for subject %s: %w", queue, subject, err)
	}

	subscription := &Subscription{sub: sub, logger: s.logger}
	s.subscriptions[key] = subscription
	return subscription, nil
}

// UnsubscribeAll unsubscribes from every active subject.
func (s *EventSubscriber) UnsubscribeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for subject, subscription := range s.subscriptions {
		if err := subscription.Unsubscribe(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unsubscribe from %s: %w", subject, err))
		}
	}
	s.subscriptions = make(map[string]*Subscription)
	s.handlers = make(map[string][]MessageHandler)

	if len(errs) > 0 {
		return fmt.Errorf("errors during unsubscribe: %v", errs)
	}
	return nil
}

// OnSystemNotification registers a handler for system notifications.
func (s *EventSubscriber) OnSystemNotification(ctx context.Context, handler func(event *SystemNotificationEvent) error) error {
	_, err := s.Subscribe(ctx, SubjectNotificationSystem, func(ctx context.Context, msg *Message) error {
		var event SystemNotificationEvent
		if err := msg.Unmarshal(&event); err != nil {
			return errors.NewSerializationError("unmarshal system notification", err)
		}
		return handler(&event)
	})
	return err
}

// OnHealthCheck registers a handler for health check events.
func (s *EventSubscriber) OnHealthCheck(ctx context.Context, handler func(event *HealthCheckEvent) error) error {
	_, err := s.Subscribe(ctx, SubjectAlertHealthCheck, func(ctx context.Context, msg *Message) error {
		var event HealthCheckEvent
		if err := msg.Unmarshal(&event); err != nil {
			return errors.NewSerializationError("unmarshal health check", err)
		}
		return handler(&event)
	})
	return err
}

// OnIngestCompleted registers a handler for ingest-completed events.
func (s *EventSubscriber) OnIngestCompleted(ctx context.Context, handler func(event *IngestCompletedEvent) error) error {
	_, err := s.Subscribe(ctx, SubjectIngestCompleted, func(ctx context.Context, msg *Message) error {
		var event IngestCompletedEvent
		if err := msg.Unmarshal(&event); err != nil {
			return errors.NewSerializationError("unmarshal ingest completed", err)
		}
		return handler(&event)
	})
	return err
}

// OnScoringCompleted registers a handler for scoring-completed events.
func (s *EventSubscriber) OnScoringCompleted(ctx context.Context, handler func(event *ScoringCompletedEvent) error) error {
	_, err := s.Subscribe(ctx, SubjectScoringCompleted, func(ctx context.Context, msg *Message) error {
		var event ScoringCompletedEvent
		if err := msg.Unmarshal(&event); err != nil {
			return errors.NewSerializationError("unmarshal scoring completed", err)
		}
		return handler(&event)
	})
	return err
}

// GetSubscriptionInfo returns diagnostic information about active subscriptions.
func (s *EventSubscriber) GetSubscriptionInfo() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := make(map[string]interface{})
	for subject, subscription := range s.subscriptions {
		pending, _, _ := subscription.PendingMessages()
		info[subject] = map[string]interface{}{
			"valid":            subscription.IsValid(),
			"pending_messages": pending,
			"queue":            subscription.Queue(),
		}
	}
	return info
}
