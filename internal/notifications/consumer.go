package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/olegbarsky/tradeport-backend/pkg/enums"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/metrics"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox/idempotency"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox/payloads"
)

const emailConsumer = "email-notifications"

// Consumer watches the notifications subscription and turns domain
// events into outgoing emails. Delivery is at-least-once; the
// idempotency guard keeps redelivered events from sending twice.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	metrics      *metrics.PlatformMetrics
	logg         *logger.Logger
}

// NewConsumer builds the email notification consumer.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, collector *metrics.PlatformMetrics, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notifications subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		idempotency:  manager,
		metrics:      collector,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	switch eventType {
	case enums.EventUserRegistered, enums.EventPasswordResetRequested, enums.EventOrderPlaced:
	default:
		c.logg.Info(logCtx, "skipping unhandled event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		c.logg.Error(logCtx, "envelope is missing event id", fmt.Errorf("empty event id"))
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID)

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, emailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data); err != nil {
		// The mail path has its own retry budget. A failure here is
		// terminal for this delivery: log it and ack so the queue
		// does not spin on a dead mailbox.
		c.logg.Error(logCtx, "email notification failed", err)
		c.metrics.IncEmailFailed(string(eventType))
		return processResult{ack: true}
	}

	c.metrics.IncEmailSent(string(eventType))
	c.logg.Info(logCtx, "email notification sent")
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventUserRegistered:
		var payload payloads.UserRegisteredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode user registered payload: %w", err)
		}
		return c.svc.HandleUserRegistered(ctx, payload)
	case enums.EventPasswordResetRequested:
		var payload payloads.PasswordResetRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode password reset payload: %w", err)
		}
		return c.svc.HandlePasswordReset(ctx, payload)
	case enums.EventOrderPlaced:
		var payload payloads.OrderPlacedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode order placed payload: %w", err)
		}
		return c.svc.HandleOrderPlaced(ctx, payload)
	default:
		return fmt.Errorf("unsupported event type %s", eventType)
	}
}
