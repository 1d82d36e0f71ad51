package http

import (
	"time"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
)

// UserResponse is the public profile. Hourly rate and job count are only set for providers.
type UserResponse struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Role          string    `json:"role"`
	HourlyRate    string    `json:"hourly_rate,omitempty"`
	CompletedJobs *int      `json:"completed_jobs,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewUserResponse(u *user.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		DisplayName: u.Name(),
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
	if u.IsProvider() {
		jobs := u.CompletedJobs
		resp.HourlyRate = u.HourlyRate.StringFixed(2)
		resp.CompletedJobs = &jobs
	}
	return resp
}
