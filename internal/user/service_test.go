package user

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
)

func TestService_Directory(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(&User{
		ID:          "p-1",
		DisplayName: "Maria",
		Role:        auth.RoleProvider,
		HourlyRate:  decimal.RequireFromString("35"),
		IsActive:    true,
	})
	svc := NewService(repo)

	t.Run("get", func(t *testing.T) {
		u, err := svc.GetByID(ctx, " p-1 ")
		require.NoError(t, err)
		assert.Equal(t, "Maria", u.Name())
		assert.True(t, u.HourlyRate.Equal(decimal.NewFromInt(35)))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.GetByID(ctx, "  ")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("increment", func(t *testing.T) {
		require.NoError(t, svc.IncrementCompletedJobs(ctx, "p-1"))
		require.NoError(t, svc.IncrementCompletedJobs(ctx, "p-1"))

		u, err := svc.GetByID(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, 2, u.CompletedJobs)

		assert.ErrorIs(t, svc.IncrementCompletedJobs(ctx, "nobody"), ErrNotFound)
	})

	t.Run("returned copy is detached", func(t *testing.T) {
		u, err := svc.GetByID(ctx, "p-1")
		require.NoError(t, err)
		u.DisplayName = "changed"

		again, err := svc.GetByID(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "Maria", again.DisplayName)
	})
}

func TestUser_NameFallback(t *testing.T) {
	assert.Equal(t, "Your cleaner", (&User{Role: auth.RoleProvider}).Name())
	assert.Equal(t, "Your customer", (&User{Role: auth.RoleCustomer}).Name())
	assert.Equal(t, "Support", (&User{Role: auth.RoleAdmin}).Name())
}
