package http

import (
	"time"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/booking"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/request"
)

type BookingResponse struct {
	ID                  string     `json:"id"`
	CustomerID          string     `json:"customer_id"`
	ProviderID          string     `json:"provider_id"`
	ScheduledDate       string     `json:"scheduled_date"`
	ScheduledTime       string     `json:"scheduled_time"`
	DurationHours       int        `json:"duration_hours"`
	ServiceType         string     `json:"service_type"`
	Address             string     `json:"address"`
	City                string     `json:"city"`
	State               string     `json:"state"`
	ZipCode             string     `json:"zip_code"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	HourlyRate          string     `json:"hourly_rate"`
	Subtotal            string     `json:"subtotal"`
	ServiceFee          string     `json:"service_fee"`
	Tax                 string     `json:"tax"`
	TotalAmount         string     `json:"total_amount"`
	Status              string     `json:"status"`
	ConfirmedAt         *time.Time `json:"confirmed_at"`
	StartedAt           *time.Time `json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	CancelledAt         *time.Time `json:"cancelled_at"`
	CancellationReason  *string    `json:"cancellation_reason"`
	Version             int        `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                  b.ID,
		CustomerID:          b.CustomerID,
		ProviderID:          b.ProviderID,
		ScheduledDate:       b.ScheduledDate.Format(booking.DateLayout),
		ScheduledTime:       b.ScheduledTime,
		DurationHours:       b.DurationHours,
		ServiceType:         string(b.ServiceType),
		Address:             b.Address,
		City:                b.City,
		State:               b.State,
		ZipCode:             b.ZipCode,
		SpecialInstructions: b.SpecialInstructions,
		HourlyRate:          b.HourlyRate.StringFixed(2),
		Subtotal:            b.Subtotal.StringFixed(2),
		ServiceFee:          b.ServiceFee.StringFixed(2),
		Tax:                 b.Tax.StringFixed(2),
		TotalAmount:         b.TotalAmount.StringFixed(2),
		Status:              string(b.Status),
		ConfirmedAt:         b.ConfirmedAt,
		StartedAt:           b.StartedAt,
		CompletedAt:         b.CompletedAt,
		CancelledAt:         b.CancelledAt,
		CancellationReason:  b.CancellationReason,
		Version:             b.Version,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

type HistoryResponse struct {
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Transition string    `json:"transition"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewHistoryResponse(e *booking.HistoryEntry) HistoryResponse {
	return HistoryResponse{
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		Transition: string(e.Transition),
		ActorID:    e.ActorID,
		ActorRole:  string(e.ActorRole),
		Reason:     e.Reason,
		CreatedAt:  e.CreatedAt,
	}
}

type CreateBookingBody struct {
	ProviderID          string `json:"provider_id" binding:"required,uuid"`
	ScheduledDate       string `json:"scheduled_date" binding:"required,datetime=2006-01-02"`
	ScheduledTime       string `json:"scheduled_time" binding:"required"`
	DurationHours       int    `json:"duration_hours" binding:"required"`
	ServiceType         string `json:"service_type" binding:"required"`
	Address             string `json:"address" binding:"required"`
	City                string `json:"city"`
	State               string `json:"state"`
	ZipCode             string `json:"zip_code"`
	SpecialInstructions string `json:"special_instructions" binding:"max=2000"`
}

type ReasonBody struct {
	Reason string `json:"reason"`
}

type RescheduleBody struct {
	ScheduledDate       *string `json:"scheduled_date" binding:"omitempty,datetime=2006-01-02"`
	ScheduledTime       *string `json:"scheduled_time"`
	DurationHours       *int    `json:"duration_hours"`
	SpecialInstructions *string `json:"special_instructions" binding:"omitempty,max=2000"`
}

type ListBookingsRequest struct {
	request.ListParams
	Status     string `form:"status"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	ProviderID string `form:"provider_id" binding:"omitempty,uuid"`
}

func (r *ListBookingsRequest) Validate() error {
	if r.Status != "" && !booking.Status(r.Status).Valid() {
		return booking.ErrInvalidInput
	}
	return nil
}
