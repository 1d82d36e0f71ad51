package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/notification"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/realtime"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
)

// IntegrationEvent is published to the message broker after every committed transition.
type IntegrationEvent struct {
	EventID     string     `json:"eventId"`
	Type        string     `json:"type"`
	BookingID   string     `json:"bookingId"`
	CustomerID  string     `json:"customerId"`
	ProviderID  string     `json:"providerId"`
	Transition  Transition `json:"transition"`
	FromStatus  Status     `json:"fromStatus,omitempty"`
	Status      Status     `json:"status"`
	ActorID     string     `json:"actorId"`
	ActorRole   auth.Role  `json:"actorRole"`
	Reason      string     `json:"reason,omitempty"`
	TotalAmount string     `json:"totalAmount"`
	OccurredAt  time.Time  `json:"occurredAt"`
}

// afterCommit runs the best-effort side effects of a committed transition.
// Failures are logged and never reach the caller: the booking row is the source of truth.
func (s *service) afterCommit(ctx context.Context, actor auth.Actor, t Transition, eventKey string, from Status, b *Booking, reason string) {
	// The transition is already committed; a caller hanging up must not cut these short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if t == TransitionConfirmCompletion {
		if err := s.users.IncrementCompletedJobs(ctx, b.ProviderID); err != nil {
			s.log.Warn("failed to increment completed jobs",
				zap.String("booking_id", b.ID), zap.String("provider_id", b.ProviderID), zap.Error(err))
		}
	}

	msg := buildMessage(t, b, from, s.displayName(ctx, actor), reason)
	for _, recipientID := range recipients(t, actor, b) {
		s.notify(ctx, recipientID, msg, b)
	}

	evt := IntegrationEvent{
		EventID:     uuid.NewString(),
		Type:        eventKey,
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		ProviderID:  b.ProviderID,
		Transition:  t,
		FromStatus:  from,
		Status:      b.Status,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Reason:      reason,
		TotalAmount: b.TotalAmount.StringFixed(2),
		OccurredAt:  b.UpdatedAt,
	}
	if err := s.publisher.PublishJSON(ctx, eventKey, evt); err != nil {
		s.log.Warn("failed to publish booking event",
			zap.String("booking_id", b.ID), zap.String("key", eventKey), zap.Error(err))
	}
}

func (s *service) notify(ctx context.Context, recipientID string, msg message, b *Booking) {
	n, err := s.notifications.Create(ctx, notification.CreateRequest{
		RecipientUserID: recipientID,
		BookingID:       b.ID,
		Type:            msg.typ,
		Title:           msg.title,
		Message:         msg.body,
	})
	if err != nil {
		s.log.Warn("failed to store notification",
			zap.String("booking_id", b.ID), zap.String("recipient_id", recipientID),
			zap.String("type", string(msg.typ)), zap.Error(err))
	}

	if s.broadcaster == nil {
		return
	}

	evt := realtime.Event{
		Type:      realtime.EventBookingUpdated,
		BookingID: b.ID,
		Status:    string(b.Status),
		Timestamp: b.UpdatedAt,
	}
	if n != nil {
		evt.Notification = &realtime.NotificationEvent{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		}
	}
	if err := s.broadcaster.Broadcast(ctx, recipientID, evt); err != nil {
		s.log.Warn("failed to broadcast booking event",
			zap.String("booking_id", b.ID), zap.String("recipient_id", recipientID), zap.Error(err))
	}
}

func (s *service) displayName(ctx context.Context, actor auth.Actor) string {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return (&user.User{Role: actor.Role}).Name()
	}
	return u.Name()
}

// recipients returns the counterparty of the actor. An admin cancel notifies both sides.
func recipients(t Transition, actor auth.Actor, b *Booking) []string {
	switch t {
	case TransitionCreate, TransitionConfirmCompletion, TransitionDispute, TransitionReschedule:
		return []string{b.ProviderID}
	case TransitionConfirm, TransitionDecline, TransitionStart, TransitionComplete:
		return []string{b.CustomerID}
	case TransitionCancel:
		switch actor.Role {
		case auth.RoleCustomer:
			return []string{b.ProviderID}
		case auth.RoleProvider:
			return []string{b.CustomerID}
		default:
			return []string{b.CustomerID, b.ProviderID}
		}
	}
	return nil
}

type message struct {
	typ   notification.Type
	title string
	body  string
}

func buildMessage(t Transition, b *Booking, from Status, actorName, reason string) message {
	when := fmt.Sprintf("%s at %s", b.ScheduledDate.Format("Mon, Jan 2"), b.ScheduledTime)

	switch t {
	case TransitionCreate:
		return message{notification.TypeBookingRequest, "New booking request",
			fmt.Sprintf("%s requested a %s cleaning on %s for %d hours.", actorName, serviceLabel(b.ServiceType), when, b.DurationHours)}
	case TransitionConfirm:
		return message{notification.TypeBookingConfirmed, "Booking confirmed",
			fmt.Sprintf("%s confirmed your cleaning on %s.", actorName, when)}
	case TransitionDecline:
		return message{notification.TypeBookingCancelled, "Booking declined",
			fmt.Sprintf("%s declined your booking for %s: %s", actorName, when, reason)}
	case TransitionStart:
		return message{notification.TypeBookingStarted, "Cleaning started",
			fmt.Sprintf("%s has started your cleaning.", actorName)}
	case TransitionComplete:
		return message{notification.TypeBookingAwaitingConfirmation, "Please confirm completion",
			fmt.Sprintf("%s marked the job as finished. Please confirm it or raise a dispute.", actorName)}
	case TransitionConfirmCompletion:
		return message{notification.TypeBookingCompleted, "Job completed",
			fmt.Sprintf("%s confirmed the cleaning on %s is complete.", actorName, when)}
	case TransitionDispute:
		body := fmt.Sprintf("%s disputed the completion of the cleaning on %s.", actorName, when)
		if reason != "" {
			body += " Reason: " + reason
		}
		return message{notification.TypeBookingDisputed, "Completion disputed", body}
	case TransitionCancel:
		return message{notification.TypeBookingCancelled, "Booking cancelled",
			fmt.Sprintf("%s cancelled the booking for %s: %s", actorName, when, reason)}
	case TransitionReschedule:
		body := fmt.Sprintf("%s rescheduled the booking to %s for %d hours.", actorName, when, b.DurationHours)
		if from == StatusConfirmed {
			body += " Please confirm it again."
		}
		return message{notification.TypeBookingRescheduled, "Booking rescheduled", body}
	}
	return message{}
}

func serviceLabel(t ServiceType) string {
	switch t {
	case ServiceDeep:
		return "deep"
	case ServiceMoveInOut:
		return "move-in/move-out"
	case ServicePostConstruction:
		return "post-construction"
	case ServiceOffice:
		return "office"
	default:
		return "standard"
	}
}
