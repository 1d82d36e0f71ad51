package user

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound = apperror.New(http.StatusNotFound, "user not found")
)

// User is the slice of a marketplace profile this service reads: enough to price a
// booking, address a notification and keep the provider's job counter.
type User struct {
	ID            string // UUID
	DisplayName   string
	Role          auth.Role
	HourlyRate    decimal.Decimal // zero for customers
	CompletedJobs int
	IsActive      bool
	CreatedAt     time.Time
}

// Name returns a display label, falling back to a role-based one.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	switch u.Role {
	case auth.RoleProvider:
		return "Your cleaner"
	case auth.RoleAdmin:
		return "Support"
	default:
		return "Your customer"
	}
}

func (u *User) IsProvider() bool {
	return u.Role == auth.RoleProvider
}
