package notification

import (
	"errors"
	"time"
)

var (
	ErrRecipientRequired = errors.New("recipient is required")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidType       = errors.New("invalid notification type")
)

// Type tags a notification with the booking transition that produced it.
type Type string

const (
	TypeBookingRequest              Type = "BOOKING_REQUEST"
	TypeBookingConfirmed            Type = "BOOKING_CONFIRMED"
	TypeBookingCancelled            Type = "BOOKING_CANCELLED"
	TypeBookingStarted              Type = "BOOKING_STARTED"
	TypeBookingAwaitingConfirmation Type = "BOOKING_AWAITING_CONFIRMATION"
	TypeBookingCompleted            Type = "BOOKING_COMPLETED"
	TypeBookingDisputed             Type = "BOOKING_DISPUTED"
	TypeBookingRescheduled          Type = "BOOKING_RESCHEDULED"
)

func (t Type) Valid() bool {
	switch t {
	case TypeBookingRequest, TypeBookingConfirmed, TypeBookingCancelled, TypeBookingStarted,
		TypeBookingAwaitingConfirmation, TypeBookingCompleted, TypeBookingDisputed, TypeBookingRescheduled:
		return true
	}
	return false
}

// Notification is an inbox entry. It is never modified after creation.
type Notification struct {
	ID              string
	RecipientUserID string
	BookingID       string
	Type            Type
	Title           string
	Message         string
	CreatedAt       time.Time
}

// Filter defines parameters for listing a user's inbox.
type Filter struct {
	RecipientUserID string
	Type            Type
	Page            int
	PageSize        int
	SortOrder       string
}
