package push

import (
	"context"
	"fmt"

	"civicpay/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// FCMSender implements ports.PushSender via Firebase Cloud Messaging.
// Devices subscribe to a per-owner topic when the owner signs in, so
// the backend needs no device token registry.
type FCMSender struct {
	client *messaging.Client
	log    zerolog.Logger
}

// NewFCMSender creates an FCM sender. Returns (nil, nil) when no
// credentials file is configured; callers treat a nil sender as push
// disabled.
func NewFCMSender(ctx context.Context, cfg config.PushConfig, log zerolog.Logger) (*FCMSender, error) {
	if cfg.CredentialsFile == "" {
		log.Info().Msg("push notifications disabled: no FCM credentials configured")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm messaging client: %w", err)
	}

	return &FCMSender{
		client: client,
		log:    log.With().Str("component", "fcm_sender").Logger(),
	}, nil
}

// SendPaymentConfirmed notifies the owner's devices that a top-up
// settled. A nil receiver is a no-op so wiring stays unconditional.
func (s *FCMSender) SendPaymentConfirmed(ctx context.Context, ownerID uuid.UUID, reference string, amount int64) error {
	if s == nil {
		return nil
	}

	msg := &messaging.Message{
		Topic: OwnerTopic(ownerID),
		Notification: &messaging.Notification{
			Title: "Top-up received",
			Body:  fmt.Sprintf("Your wallet was credited %d.%02d THB", amount/100, amount%100),
		},
		Data: map[string]string{
			"type":      "payment_confirmed",
			"reference": reference,
			"amount":    fmt.Sprintf("%d", amount),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := s.client.Send(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("failed to send payment push")
		return fmt.Errorf("send fcm message: %w", err)
	}
	return nil
}

// OwnerTopic is the FCM topic devices subscribe to for an owner's
// wallet events.
func OwnerTopic(ownerID uuid.UUID) string {
	return "wallet-owner-" + ownerID.String()
}
