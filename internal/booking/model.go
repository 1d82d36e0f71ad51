package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pricing"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "booking not found")
	ErrForbidden          = apperror.New(http.StatusForbidden, "not allowed to perform this action on the booking")
	ErrPreconditionFailed = apperror.New(http.StatusConflict, "booking status does not allow this action")
	ErrProviderNotFound   = apperror.New(http.StatusNotFound, "provider not found")
	ErrCustomerNotFound   = apperror.New(http.StatusNotFound, "customer not found")

	ErrInvalidInput       = apperror.New(http.StatusBadRequest, "invalid input parameters")
	ErrInvalidDuration    = apperror.New(http.StatusBadRequest, "duration must be between 1 and 8 hours")
	ErrInvalidServiceType = apperror.New(http.StatusBadRequest, "invalid service type")
	ErrInvalidTime        = apperror.New(http.StatusBadRequest, "scheduled time must be formatted as HH:MM")
	ErrDateRequired       = apperror.New(http.StatusBadRequest, "scheduled date is required")
	ErrDateInPast         = apperror.New(http.StatusBadRequest, "cannot schedule a booking in the past")
	ErrAddressRequired    = apperror.New(http.StatusBadRequest, "address is required")
	ErrReasonTooLong      = apperror.New(http.StatusBadRequest, "reason must be at most 500 characters")
	ErrNothingToChange    = apperror.New(http.StatusBadRequest, "reschedule requires at least one change")
)

const (
	MinDurationHours = 1
	MaxDurationHours = 8
	MaxReasonLength  = 500

	// TimeLayout is the wire and storage format of ScheduledTime.
	TimeLayout = "15:04"
	DateLayout = "2006-01-02"
)

type Status string

const (
	StatusPending              Status = "PENDING"
	StatusConfirmed            Status = "CONFIRMED"
	StatusInProgress           Status = "IN_PROGRESS"
	StatusAwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	StatusCompleted            Status = "COMPLETED"
	StatusCancelled            Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusAwaitingConfirmation, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceStandard         ServiceType = "STANDARD"
	ServiceDeep             ServiceType = "DEEP"
	ServiceMoveInOut        ServiceType = "MOVE_IN_OUT"
	ServicePostConstruction ServiceType = "POST_CONSTRUCTION"
	ServiceOffice           ServiceType = "OFFICE"
)

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceStandard, ServiceDeep, ServiceMoveInOut, ServicePostConstruction, ServiceOffice:
		return true
	}
	return false
}

// Booking is one scheduled cleaning job between a customer and a provider.
type Booking struct {
	ID         string
	CustomerID string
	ProviderID string

	ScheduledDate time.Time // calendar date, midnight UTC
	ScheduledTime string    // HH:MM
	DurationHours int
	ServiceType   ServiceType

	Address             string
	City                string
	State               string
	ZipCode             string
	SpecialInstructions string

	// Price snapshot. TotalAmount = Subtotal + ServiceFee + Tax.
	HourlyRate  decimal.Decimal
	Subtotal    decimal.Decimal
	ServiceFee  decimal.Decimal
	Tax         decimal.Decimal
	TotalAmount decimal.Decimal

	Status             Status
	ConfirmedAt        *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Booking) applyQuote(q pricing.Quote) {
	b.HourlyRate = q.HourlyRate
	b.Subtotal = q.Subtotal
	b.ServiceFee = q.ServiceFee
	b.Tax = q.Tax
	b.TotalAmount = q.Total
}

// Change describes one committed transition. Stores record it in the status history.
type Change struct {
	Transition Transition
	ActorID    string
	ActorRole  auth.Role
	Reason     string
	At         time.Time
}

// HistoryEntry is one row of a booking's status history.
type HistoryEntry struct {
	ID         string
	BookingID  string
	FromStatus Status // empty for the create entry
	ToStatus   Status
	Transition Transition
	ActorID    string
	ActorRole  auth.Role
	Reason     string
	CreatedAt  time.Time
}

// TransitionError reports that the booking was not in a status the transition accepts.
// It matches ErrPreconditionFailed with errors.Is.
type TransitionError struct {
	Transition Transition
	Current    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a booking in status %s", e.Transition, e.Current)
}

func (e *TransitionError) Unwrap() error {
	return ErrPreconditionFailed
}

// Filter defines parameters for listing bookings.
type Filter struct {
	CustomerID string
	ProviderID string
	PartyID    string // matches either side
	Status     Status
	Page       int
	PageSize   int
	SortOrder  string
}
