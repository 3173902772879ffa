package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/mailer"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox/payloads"
)

const defaultSendAttempts = 3

// Service renders domain events into plain-text emails and hands them
// to the configured sender.
type Service interface {
	HandleUserRegistered(ctx context.Context, payload payloads.UserRegisteredEvent) error
	HandlePasswordReset(ctx context.Context, payload payloads.PasswordResetRequestedEvent) error
	HandleOrderPlaced(ctx context.Context, payload payloads.OrderPlacedEvent) error
}

// ServiceParams wires the email notification service.
type ServiceParams struct {
	Sender   mailer.Sender
	Logger   *logger.Logger
	Attempts uint64
}

type service struct {
	sender   mailer.Sender
	logg     *logger.Logger
	attempts uint64
}

// NewService validates dependencies and builds the email service.
func NewService(params ServiceParams) (Service, error) {
	if params.Sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	attempts := params.Attempts
	if attempts == 0 {
		attempts = defaultSendAttempts
	}
	return &service{
		sender:   params.Sender,
		logg:     params.Logger,
		attempts: attempts,
	}, nil
}

func (s *service) HandleUserRegistered(ctx context.Context, payload payloads.UserRegisteredEvent) error {
	if payload.Email == "" {
		return fmt.Errorf("recipient email missing")
	}
	if payload.ConfirmToken == "" {
		return fmt.Errorf("confirm token missing")
	}

	greeting := "Hello"
	if payload.FirstName != "" {
		greeting = fmt.Sprintf("Hello %s", payload.FirstName)
	}
	body := strings.Join([]string{
		greeting + ",",
		"",
		"Thank you for registering. Use the token below to confirm your account:",
		"",
		payload.ConfirmToken,
		"",
		"If you did not create this account, ignore this message.",
	}, "\n")

	return s.deliver(ctx, mailer.Message{
		To:      payload.Email,
		Subject: "Confirm your account",
		Body:    body,
	})
}

func (s *service) HandlePasswordReset(ctx context.Context, payload payloads.PasswordResetRequestedEvent) error {
	if payload.Email == "" {
		return fmt.Errorf("recipient email missing")
	}
	if payload.ResetToken == "" {
		return fmt.Errorf("reset token missing")
	}

	body := strings.Join([]string{
		"Hello,",
		"",
		"A password reset was requested for your account. Use this token to set a new password:",
		"",
		payload.ResetToken,
		"",
		"If you did not request a reset, your password is still safe and no action is needed.",
	}, "\n")

	return s.deliver(ctx, mailer.Message{
		To:      payload.Email,
		Subject: "Password reset token",
		Body:    body,
	})
}

func (s *service) HandleOrderPlaced(ctx context.Context, payload payloads.OrderPlacedEvent) error {
	if payload.Email == "" {
		return fmt.Errorf("recipient email missing")
	}
	if payload.OrderID == 0 {
		return fmt.Errorf("order id missing")
	}

	placedAt := payload.PlacedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}
	body := strings.Join([]string{
		"Hello,",
		"",
		fmt.Sprintf("Your order #%d has been placed and is now being processed.", payload.OrderID),
		"",
		fmt.Sprintf("Items: %d", payload.ItemCount),
		fmt.Sprintf("Total: %s", payload.TotalSum),
		fmt.Sprintf("Placed at: %s", placedAt.Format(time.RFC3339)),
		"",
		"You will receive further updates as the order moves through fulfillment.",
	}, "\n")

	return s.deliver(ctx, mailer.Message{
		To:      payload.Email,
		Subject: fmt.Sprintf("Order #%d placed", payload.OrderID),
		Body:    body,
	})
}

// deliver retries transient SMTP failures with a short fibonacci backoff.
func (s *service) deliver(ctx context.Context, msg mailer.Message) error {
	backoff := retry.WithMaxRetries(s.attempts-1, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.sender.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send %q to %s: %w", msg.Subject, msg.To, err)
	}
	return nil
}
