package notification

import (
	"context"
	"fmt"

	"salonbook/database/repository"
	"salonbook/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// NotificationService tells a salon owner about customer replies.
type NotificationService interface {
	NotifyBookingStatus(ctx context.Context, booking models.Booking) error
}

// Sender is the part of the FCM client the service uses.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// DefaultNotificationService pushes through Firebase Cloud Messaging to the
// owner token stored on the site.
type DefaultNotificationService struct {
	sites  repository.SiteRepository
	sender Sender
	logger *zap.Logger
}

func NewDefaultNotificationService(sites repository.SiteRepository, sender Sender, logger *zap.Logger) (*DefaultNotificationService, error) {
	if sites == nil || sender == nil {
		return nil, fmt.Errorf("notification service initialization error: site repository or sender is nil")
	}
	return &DefaultNotificationService{sites: sites, sender: sender, logger: logger}, nil
}

func (s *DefaultNotificationService) NotifyBookingStatus(ctx context.Context, booking models.Booking) error {
	site, err := s.sites.GetByID(ctx, booking.TenantID)
	if err != nil {
		return fmt.Errorf("NotifyBookingStatus: could not load site %s: %w", booking.TenantID, err)
	}
	if site.OwnerPushToken == "" {
		// Nothing to push to.
		return nil
	}

	title, body := statusMessage(booking)
	msg := &messaging.Message{
		Token: site.OwnerPushToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":      "booking_status",
			"tenantId":  booking.TenantID,
			"bookingId": booking.ID,
			"status":    string(booking.Status),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
		},
	}
	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("NotifyBookingStatus: failed to send FCM message: %w", err)
	}
	s.logger.Debug("Owner notified", zap.String("tenantID", booking.TenantID), zap.String("bookingID", booking.ID))
	return nil
}

func statusMessage(b models.Booking) (string, string) {
	who := b.CustomerName
	if who == "" {
		who = b.CustomerPhone
	}
	switch b.Status {
	case models.StatusConfirmed:
		return "Appointment confirmed", fmt.Sprintf("%s confirmed %s at %s", who, b.Date, b.Time)
	case models.StatusCancelled:
		return "Appointment cancelled", fmt.Sprintf("%s cancelled %s at %s", who, b.Date, b.Time)
	}
	return "Appointment updated", fmt.Sprintf("%s: %s at %s is now %s", who, b.Date, b.Time, b.Status)
}

// NoopNotificationService is used when push notifications are disabled.
type NoopNotificationService struct{}

func (NoopNotificationService) NotifyBookingStatus(context.Context, models.Booking) error {
	return nil
}
