package booking

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/events"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/notification"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pricing"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/realtime"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
)

// sideEffectTimeout bounds the best-effort work done after a transition commits.
const sideEffectTimeout = 5 * time.Second

type CreateRequest struct {
	ProviderID          string
	ScheduledDate       time.Time
	ScheduledTime       string
	DurationHours       int
	ServiceType         ServiceType
	Address             string
	City                string
	State               string
	ZipCode             string
	SpecialInstructions string
}

// RescheduleRequest changes only the fields that are set.
type RescheduleRequest struct {
	ScheduledDate       *time.Time
	ScheduledTime       *string
	DurationHours       *int
	SpecialInstructions *string
}

// UserDirectory is the slice of the user module the engine depends on.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	IncrementCompletedJobs(ctx context.Context, id string) error
}

// Service is the booking lifecycle engine. Every transition takes the acting user
// explicitly and checks it against the booking's parties.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*Booking, error)
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Booking, int, error)
	History(ctx context.Context, actor auth.Actor, id string) ([]*HistoryEntry, error)

	Confirm(ctx context.Context, actor auth.Actor, id string) (*Booking, error)
	Decline(ctx context.Context, actor auth.Actor, id, reason string) (*Booking, error)
	Start(ctx context.Context, actor auth.Actor, id string) (*Booking, error)
	Complete(ctx context.Context, actor auth.Actor, id string) (*Booking, error)
	ConfirmCompletion(ctx context.Context, actor auth.Actor, id string) (*Booking, error)
	Dispute(ctx context.Context, actor auth.Actor, id, reason string) (*Booking, error)
	Cancel(ctx context.Context, actor auth.Actor, id, reason string) (*Booking, error)
	Reschedule(ctx context.Context, actor auth.Actor, id string, req RescheduleRequest) (*Booking, error)
}

type Option func(*service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo          Repository
	users         UserDirectory
	notifications notification.Service
	broadcaster   realtime.Broadcaster
	publisher     events.Publisher
	log           *zap.Logger
	now           func() time.Time
}

func NewService(
	repo Repository,
	users UserDirectory,
	notifications notification.Service,
	broadcaster realtime.Broadcaster,
	publisher events.Publisher,
	log *zap.Logger,
	opts ...Option,
) Service {
	s := &service{
		repo:          repo,
		users:         users,
		notifications: notifications,
		broadcaster:   broadcaster,
		publisher:     publisher,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NewNopPublisher()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Booking, error) {
	if actor.Role != auth.RoleCustomer || actor.ID == "" {
		return nil, ErrForbidden
	}

	now := s.now()
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" || req.ProviderID == actor.ID {
		return nil, ErrInvalidInput
	}
	if !req.ServiceType.Valid() {
		return nil, ErrInvalidServiceType
	}
	if err := validateDuration(req.DurationHours); err != nil {
		return nil, err
	}
	date, err := validateDate(req.ScheduledDate, now)
	if err != nil {
		return nil, err
	}
	clock, err := validateTime(req.ScheduledTime)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Address) == "" {
		return nil, ErrAddressRequired
	}

	provider, err := s.users.GetByID(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	if provider.Role != auth.RoleProvider || !provider.IsActive {
		return nil, ErrProviderNotFound
	}

	quote, err := pricing.Calculate(provider.HourlyRate, req.DurationHours)
	if err != nil {
		return nil, ErrInvalidInput
	}

	b := &Booking{
		CustomerID:          actor.ID,
		ProviderID:          provider.ID,
		ScheduledDate:       date,
		ScheduledTime:       clock,
		DurationHours:       req.DurationHours,
		ServiceType:         req.ServiceType,
		Address:             strings.TrimSpace(req.Address),
		City:                strings.TrimSpace(req.City),
		State:               strings.TrimSpace(req.State),
		ZipCode:             strings.TrimSpace(req.ZipCode),
		SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
		Status:              StatusPending,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	b.applyQuote(quote)

	change := Change{Transition: TransitionCreate, ActorID: actor.ID, ActorRole: actor.Role, At: now}
	if err := s.repo.Create(ctx, b, change); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, TransitionCreate, createdEventKey, "", b, "")
	return b, nil
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, b) {
		return nil, ErrForbidden
	}
	return b, nil
}

// List scopes non-admin callers to their own bookings.
func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Booking, int, error) {
	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RoleCustomer:
		filter.CustomerID = actor.ID
		filter.ProviderID, filter.PartyID = "", ""
	case auth.RoleProvider:
		filter.ProviderID = actor.ID
		filter.CustomerID, filter.PartyID = "", ""
	default:
		return nil, 0, ErrForbidden
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidInput
	}
	return s.repo.List(ctx, filter)
}

func (s *service) History(ctx context.Context, actor auth.Actor, id string) ([]*HistoryEntry, error) {
	b, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, b.ID)
}

func (s *service) Confirm(ctx context.Context, actor auth.Actor, id string) (*Booking, error) {
	return s.transition(ctx, actor, id, TransitionConfirm, "", func(b *Booking, now time.Time) error {
		b.ConfirmedAt = &now
		return nil
	})
}

func (s *service) Decline(ctx context.Context, actor auth.Actor, id, reason string) (*Booking, error) {
	reason, err := normalizeReason(reason, "Declined by provider")
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, TransitionDecline, reason, func(b *Booking, now time.Time) error {
		b.CancelledAt = &now
		b.CancellationReason = &reason
		return nil
	})
}

func (s *service) Start(ctx context.Context, actor auth.Actor, id string) (*Booking, error) {
	return s.transition(ctx, actor, id, TransitionStart, "", func(b *Booking, now time.Time) error {
		b.StartedAt = &now
		return nil
	})
}

func (s *service) Complete(ctx context.Context, actor auth.Actor, id string) (*Booking, error) {
	return s.transition(ctx, actor, id, TransitionComplete, "", nil)
}

func (s *service) ConfirmCompletion(ctx context.Context, actor auth.Actor, id string) (*Booking, error) {
	return s.transition(ctx, actor, id, TransitionConfirmCompletion, "", func(b *Booking, now time.Time) error {
		b.CompletedAt = &now
		return nil
	})
}

func (s *service) Dispute(ctx context.Context, actor auth.Actor, id, reason string) (*Booking, error) {
	reason, err := normalizeReason(reason, "")
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, TransitionDispute, reason, nil)
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id, reason string) (*Booking, error) {
	reason, err := normalizeReason(reason, "Cancelled by "+string(actor.Role))
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, TransitionCancel, reason, func(b *Booking, now time.Time) error {
		b.CancelledAt = &now
		b.CancellationReason = &reason
		return nil
	})
}

func (s *service) Reschedule(ctx context.Context, actor auth.Actor, id string, req RescheduleRequest) (*Booking, error) {
	if req.ScheduledDate == nil && req.ScheduledTime == nil && req.DurationHours == nil && req.SpecialInstructions == nil {
		return nil, ErrNothingToChange
	}

	var (
		date  time.Time
		clock string
		err   error
	)
	if req.ScheduledDate != nil {
		if date, err = validateDate(*req.ScheduledDate, s.now()); err != nil {
			return nil, err
		}
	}
	if req.ScheduledTime != nil {
		if clock, err = validateTime(*req.ScheduledTime); err != nil {
			return nil, err
		}
	}
	if req.DurationHours != nil {
		if err := validateDuration(*req.DurationHours); err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, actor, id, TransitionReschedule, "", func(b *Booking, _ time.Time) error {
		if req.ScheduledDate != nil {
			b.ScheduledDate = date
		}
		if req.ScheduledTime != nil {
			b.ScheduledTime = clock
		}
		if req.SpecialInstructions != nil {
			b.SpecialInstructions = strings.TrimSpace(*req.SpecialInstructions)
		}
		if req.DurationHours != nil && *req.DurationHours != b.DurationHours {
			// The rate captured at creation is kept; only the hours change.
			quote, err := pricing.Calculate(b.HourlyRate, *req.DurationHours)
			if err != nil {
				return ErrInvalidInput
			}
			b.DurationHours = *req.DurationHours
			b.applyQuote(quote)
		}
		// Any change needs the provider's agreement again.
		b.ConfirmedAt = nil
		return nil
	})
}

// transition runs one guarded edge of the state machine: authorize against the
// parties, then compare-and-update on status, then best-effort side effects.
func (s *service) transition(
	ctx context.Context,
	actor auth.Actor,
	id string,
	t Transition,
	reason string,
	apply func(b *Booking, now time.Time) error,
) (*Booking, error) {
	if actor.ID == "" || !actor.Role.Valid() {
		return nil, ErrForbidden
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Parties never change, so this check holds for the locked row too.
	if err := authorize(actor, current, t); err != nil {
		return nil, err
	}
	// Fail fast on a stale read; the store re-checks under the lock.
	if err := checkFrom(t, current.Status); err != nil {
		return nil, err
	}

	r := rules[t]
	now := s.now()
	var from Status

	change := Change{Transition: t, ActorID: actor.ID, ActorRole: actor.Role, Reason: reason, At: now}
	updated, err := s.repo.CompareAndUpdate(ctx, current.ID, r.from, change, func(b *Booking) error {
		from = b.Status
		b.Status = r.to
		b.UpdatedAt = now
		if apply != nil {
			return apply(b, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, t, r.eventKey, from, updated, reason)
	return updated, nil
}

func (s *service) load(ctx context.Context, id string) (*Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func validateDuration(hours int) error {
	if hours < MinDurationHours || hours > MaxDurationHours {
		return ErrInvalidDuration
	}
	return nil
}

// validateDate drops the time of day and rejects dates before today.
func validateDate(d, now time.Time) (time.Time, error) {
	if d.IsZero() {
		return time.Time{}, ErrDateRequired
	}
	date := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return time.Time{}, ErrDateInPast
	}
	return date, nil
}

func validateTime(s string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidTime
	}
	return t.Format(TimeLayout), nil
}

func normalizeReason(reason, fallback string) (string, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return "", ErrReasonTooLong
	}
	if reason == "" {
		return fallback, nil
	}
	return reason, nil
}
