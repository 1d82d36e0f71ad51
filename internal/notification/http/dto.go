package http

import (
	"time"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/notification"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/request"
)

type NotificationResponse struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func NewResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		BookingID: n.BookingID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

type ListNotificationsRequest struct {
	request.ListParams
	Type string `form:"type"`
}

func (r *ListNotificationsRequest) Validate() error {
	if r.Type != "" && !notification.Type(r.Type).Valid() {
		return notification.ErrInvalidType
	}
	return nil
}
