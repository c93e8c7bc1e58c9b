// Package confirmation resolves inbound WhatsApp yes/no replies to the one
// booking awaiting confirmation from that phone.
package confirmation

import (
	"context"
	"errors"
	"strings"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/repository"
	"salonbook/models"
	"salonbook/services/metrics"
	"salonbook/services/notification"
	"salonbook/utils"

	"go.uber.org/zap"
)

// matchLimit bounds the cross-tenant lookup. Two rows are enough to tell a
// unique match from an ambiguous one.
const matchLimit = 2

type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

var answers = map[string]Answer{
	"yes": AnswerYes, "y": AnswerYes, "1": AnswerYes, "confirm": AnswerYes, "ok": AnswerYes, "כן": AnswerYes,
	"no": AnswerNo, "n": AnswerNo, "2": AnswerNo, "cancel": AnswerNo, "לא": AnswerNo,
}

// ParseAnswer reads the first word of a reply.
func ParseAnswer(body string) Answer {
	fields := strings.Fields(strings.ToLower(body))
	if len(fields) == 0 {
		return AnswerUnknown
	}
	word := strings.Trim(fields[0], ".!,?")
	return answers[word]
}

// Outcome is what happened to a reply.
type Outcome string

const (
	OutcomeConfirmed    Outcome = "confirmed"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeUnchanged    Outcome = "unchanged"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeAmbiguous    Outcome = "ambiguous"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeInvalidPhone Outcome = "invalid_phone"
)

// ReplyResult is returned to the webhook, which renders Message back to the
// customer.
type ReplyResult struct {
	Outcome Outcome
	Booking *models.Booking
	Message string
}

var messages = map[Outcome]string{
	OutcomeConfirmed:    "Thanks! Your appointment is confirmed.",
	OutcomeCancelled:    "Your appointment has been cancelled.",
	OutcomeUnchanged:    "We already have your answer for this appointment.",
	OutcomeNotFound:     "We couldn't find an appointment waiting for your confirmation.",
	OutcomeAmbiguous:    "You have more than one appointment waiting for confirmation. Please contact the salon directly.",
	OutcomeUnrecognized: "Please reply YES to confirm or NO to cancel your appointment.",
	OutcomeInvalidPhone: "We couldn't read your phone number.",
}

type ConfirmationService interface {
	FindPendingConfirmation(ctx context.Context, phoneE164 string) (*models.Booking, error)
	HandleReply(ctx context.Context, from, body string) (ReplyResult, error)
}

type DefaultConfirmationService struct {
	Bookings      repository.BookingRepository
	Notifier      notification.NotificationService
	Logger        *zap.Logger
	DefaultRegion string
	Now           func() time.Time
}

func NewConfirmationService(bookings repository.BookingRepository, notifier notification.NotificationService, logger *zap.Logger, defaultRegion string) *DefaultConfirmationService {
	if notifier == nil {
		notifier = notification.NoopNotificationService{}
	}
	return &DefaultConfirmationService{
		Bookings:      bookings,
		Notifier:      notifier,
		Logger:        logger,
		DefaultRegion: defaultRegion,
		Now:           time.Now,
	}
}

// FindPendingConfirmation returns the single future anchor booking awaiting
// confirmation from the phone across every tenant. Zero candidates is a
// NotFound error and two or more an Ambiguous error; it never guesses.
func (s *DefaultConfirmationService) FindPendingConfirmation(ctx context.Context, phoneE164 string) (*models.Booking, error) {
	if phoneE164 == "" {
		return nil, utils.NewValidationError("invalid_phone", "phone number is required")
	}
	candidates, err := s.Bookings.ListAwaitingByPhone(ctx, phoneE164, s.Now(), matchLimit)
	if err != nil {
		return nil, utils.NewStorageError("bookings_unavailable", err)
	}
	switch len(candidates) {
	case 0:
		return nil, utils.NewNotFoundError("no_pending_confirmation", "no booking awaits confirmation from %s", phoneE164)
	case 1:
		return &candidates[0], nil
	}
	return nil, utils.NewAmbiguousError("multiple_pending_confirmations", "%s has more than one booking awaiting confirmation", phoneE164)
}

// HandleReply applies a YES or NO reply. Replaying a reply does not change
// the booking again and does not notify again.
func (s *DefaultConfirmationService) HandleReply(ctx context.Context, from, body string) (ReplyResult, error) {
	result, err := s.handle(ctx, from, body)
	metrics.IncConfirmationReply(string(result.Outcome))
	return result, err
}

func (s *DefaultConfirmationService) handle(ctx context.Context, from, body string) (ReplyResult, error) {
	phone, err := utils.NormalizePhone(from, s.DefaultRegion)
	if err != nil {
		s.Logger.Warn("Unparseable sender on confirmation reply", zap.String("from", from), zap.Error(err))
		return reply(OutcomeInvalidPhone, nil), nil
	}

	answer := ParseAnswer(body)
	if answer == AnswerUnknown {
		return reply(OutcomeUnrecognized, nil), nil
	}

	booking, err := s.FindPendingConfirmation(ctx, phone)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return reply(OutcomeNotFound, nil), nil
	case errors.Is(err, utils.ErrAmbiguous):
		s.Logger.Info("Ambiguous confirmation reply", zap.String("phone", phone))
		return reply(OutcomeAmbiguous, nil), nil
	case err != nil:
		return ReplyResult{}, err
	}

	target, outcome := models.StatusConfirmed, OutcomeConfirmed
	if answer == AnswerNo {
		target, outcome = models.StatusCancelled, OutcomeCancelled
	}

	updated, changed, err := s.Bookings.TransitionChain(ctx, booking.TenantID, booking.ID, models.StatusAwaitingConfirmation, target, s.Now())
	if errors.Is(err, docstore.ErrNotFound) {
		return reply(OutcomeNotFound, nil), nil
	}
	if err != nil {
		s.Logger.Error("Failed to apply confirmation reply",
			zap.String("tenantID", booking.TenantID),
			zap.String("bookingID", booking.ID),
			zap.Error(err))
		return ReplyResult{}, utils.NewStorageError("booking_update_failed", err)
	}
	if !changed {
		return reply(OutcomeUnchanged, updated), nil
	}

	s.Logger.Info("Booking status updated from reply",
		zap.String("tenantID", updated.TenantID),
		zap.String("bookingID", updated.ID),
		zap.String("status", string(updated.Status)))

	if err := s.Notifier.NotifyBookingStatus(ctx, *updated); err != nil {
		s.Logger.Warn("Owner notification failed", zap.String("bookingID", updated.ID), zap.Error(err))
	}
	return reply(outcome, updated), nil
}

func reply(outcome Outcome, booking *models.Booking) ReplyResult {
	return ReplyResult{Outcome: outcome, Booking: booking, Message: messages[outcome]}
}
