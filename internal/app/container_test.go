package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	bookingHttp "github.com/nekogravitycat/cleaner-booking-backend/internal/booking/http"
	notificationHttp "github.com/nekogravitycat/cleaner-booking-backend/internal/notification/http"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/cleaner-booking-backend/internal/user/http"
)

const (
	customerID = "6f1c2a3e-0000-4000-8000-000000000001"
	providerID = "6f1c2a3e-0000-4000-8000-000000000002"
	strangerID = "6f1c2a3e-0000-4000-8000-000000000003"
	adminID    = "6f1c2a3e-0000-4000-8000-000000000004"
)

type testEnv struct {
	router     *gin.Engine
	jwtManager *auth.JWTManager
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := NewContainer(Config{
		JWTSecret: "test-secret",
		JWTTTL:    30 * time.Minute,
		SeedUsers: []*user.User{
			{ID: customerID, DisplayName: "Alex", Role: auth.RoleCustomer, IsActive: true},
			{ID: providerID, DisplayName: "Maria", Role: auth.RoleProvider, HourlyRate: decimal.NewFromInt(35), IsActive: true},
			{ID: strangerID, DisplayName: "Sam", Role: auth.RoleCustomer, IsActive: true},
			{ID: adminID, DisplayName: "Ops", Role: auth.RoleAdmin, IsActive: true},
		},
		RateLimitPerMin: 0,
	})
	return &testEnv{router: c.Router, jwtManager: c.JWTManager}
}

func (e *testEnv) token(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	token, err := e.jwtManager.GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

func (e *testEnv) executeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := setupApp(t)

	w := env.executeRequest("GET", "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	env := setupApp(t)

	customerToken := env.token(t, customerID, auth.RoleCustomer)
	providerToken := env.token(t, providerID, auth.RoleProvider)
	strangerToken := env.token(t, strangerID, auth.RoleCustomer)

	date := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	var bookingID string

	t.Run("Create Booking: Unauthorized", func(t *testing.T) {
		w := env.executeRequest("POST", "/v1/bookings", map[string]any{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Create Booking: Bad Request (Missing Fields)", func(t *testing.T) {
		w := env.executeRequest("POST", "/v1/bookings", map[string]any{"provider_id": providerID}, customerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Create Booking: Provider Cannot Book", func(t *testing.T) {
		body := bookingHttp.CreateBookingBody{
			ProviderID: providerID, ScheduledDate: date, ScheduledTime: "10:00",
			DurationHours: 3, ServiceType: "STANDARD", Address: "1 Main St",
		}
		w := env.executeRequest("POST", "/v1/bookings", body, providerToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Create Booking: Success", func(t *testing.T) {
		body := bookingHttp.CreateBookingBody{
			ProviderID: providerID, ScheduledDate: date, ScheduledTime: "10:00",
			DurationHours: 3, ServiceType: "STANDARD", Address: "1 Main St", City: "Austin",
		}
		w := env.executeRequest("POST", "/v1/bookings", body, customerToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		res := decode[bookingHttp.BookingResponse](t, w)
		assert.Equal(t, "PENDING", res.Status)
		assert.Equal(t, "105.00", res.Subtotal)
		assert.Equal(t, "15.75", res.ServiceFee)
		assert.Equal(t, "8.40", res.Tax)
		assert.Equal(t, "129.15", res.TotalAmount)
		bookingID = res.ID
	})

	t.Run("Get Booking: Stranger Forbidden", func(t *testing.T) {
		w := env.executeRequest("GET", "/v1/bookings/"+bookingID, nil, strangerToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Get Booking: Invalid ID", func(t *testing.T) {
		w := env.executeRequest("GET", "/v1/bookings/not-a-uuid", nil, customerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Confirm: Customer Forbidden", func(t *testing.T) {
		w := env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/confirm", bookingID), nil, customerToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Start: Precondition Failed Carries Current Status", func(t *testing.T) {
		w := env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/start", bookingID), nil, providerToken)
		require.Equal(t, http.StatusConflict, w.Code)

		res := decode[response.ErrorResponse](t, w)
		assert.Equal(t, "PENDING", res.Details["current_status"])
		assert.Equal(t, "start", res.Details["transition"])
	})

	t.Run("Happy Path", func(t *testing.T) {
		steps := []struct {
			path   string
			token  string
			status string
		}{
			{"confirm", providerToken, "CONFIRMED"},
			{"start", providerToken, "IN_PROGRESS"},
			{"complete", providerToken, "AWAITING_CONFIRMATION"},
			{"confirm-completion", customerToken, "COMPLETED"},
		}
		for _, step := range steps {
			w := env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/%s", bookingID, step.path), nil, step.token)
			require.Equal(t, http.StatusOK, w.Code, "%s: %s", step.path, w.Body.String())
			assert.Equal(t, step.status, decode[bookingHttp.BookingResponse](t, w).Status)
		}
	})

	t.Run("Cancel After Completion: Conflict", func(t *testing.T) {
		w := env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/cancel", bookingID),
			bookingHttp.ReasonBody{Reason: "too late"}, customerToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("History", func(t *testing.T) {
		w := env.executeRequest("GET", fmt.Sprintf("/v1/bookings/%s/history", bookingID), nil, customerToken)
		require.Equal(t, http.StatusOK, w.Code)

		res := decode[struct {
			Items []bookingHttp.HistoryResponse `json:"items"`
		}](t, w)
		require.Len(t, res.Items, 5)
		assert.Equal(t, "create", res.Items[0].Transition)
		assert.Equal(t, "COMPLETED", res.Items[4].ToStatus)
	})

	t.Run("Notifications: Own Inbox Only", func(t *testing.T) {
		w := env.executeRequest("GET", "/v1/notifications", nil, customerToken)
		require.Equal(t, http.StatusOK, w.Code)
		customerInbox := decode[response.PageResponse[notificationHttp.NotificationResponse]](t, w)
		// confirm, start, complete
		assert.Equal(t, 3, customerInbox.Total)

		w = env.executeRequest("GET", "/v1/notifications", nil, providerToken)
		require.Equal(t, http.StatusOK, w.Code)
		providerInbox := decode[response.PageResponse[notificationHttp.NotificationResponse]](t, w)
		// request, confirm-completion
		assert.Equal(t, 2, providerInbox.Total)

		w = env.executeRequest("GET", "/v1/notifications", nil, strangerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, decode[response.PageResponse[notificationHttp.NotificationResponse]](t, w).Total)
	})

	t.Run("Profiles: Provider Job Count", func(t *testing.T) {
		w := env.executeRequest("GET", "/v1/users/"+providerID, nil, strangerToken)
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[userHttp.UserResponse](t, w)
		require.NotNil(t, res.CompletedJobs)
		assert.Equal(t, 1, *res.CompletedJobs)
		assert.Equal(t, "35.00", res.HourlyRate)

		// Customer profiles are not public.
		w = env.executeRequest("GET", "/v1/users/"+customerID, nil, strangerToken)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.executeRequest("GET", "/v1/me", nil, customerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Alex", decode[userHttp.UserResponse](t, w).DisplayName)
	})

	t.Run("List: Scoped To Caller", func(t *testing.T) {
		w := env.executeRequest("GET", "/v1/bookings", nil, customerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, decode[response.PageResponse[bookingHttp.BookingResponse]](t, w).Total)

		w = env.executeRequest("GET", "/v1/bookings", nil, strangerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, decode[response.PageResponse[bookingHttp.BookingResponse]](t, w).Total)
	})
}

func TestDeclineAndRescheduleOverHTTP(t *testing.T) {
	env := setupApp(t)

	customerToken := env.token(t, customerID, auth.RoleCustomer)
	providerToken := env.token(t, providerID, auth.RoleProvider)
	adminToken := env.token(t, adminID, auth.RoleAdmin)

	date := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	create := func(t *testing.T) string {
		body := bookingHttp.CreateBookingBody{
			ProviderID: providerID, ScheduledDate: date, ScheduledTime: "09:30",
			DurationHours: 3, ServiceType: "DEEP", Address: "2 Side St",
		}
		w := env.executeRequest("POST", "/v1/bookings", body, customerToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decode[bookingHttp.BookingResponse](t, w).ID
	}

	t.Run("Decline Without Body Uses Default Reason", func(t *testing.T) {
		id := create(t)
		w := env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/decline", id), nil, providerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		res := decode[bookingHttp.BookingResponse](t, w)
		assert.Equal(t, "CANCELLED", res.Status)
		require.NotNil(t, res.CancellationReason)
		assert.Equal(t, "Declined by provider", *res.CancellationReason)
	})

	t.Run("Reschedule Reprices And Returns To Pending", func(t *testing.T) {
		id := create(t)
		w := env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/confirm", id), nil, providerToken)
		require.Equal(t, http.StatusOK, w.Code)

		hours := 5
		w = env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/reschedule", id),
			bookingHttp.RescheduleBody{DurationHours: &hours}, customerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		res := decode[bookingHttp.BookingResponse](t, w)
		assert.Equal(t, "PENDING", res.Status)
		assert.Nil(t, res.ConfirmedAt)
		assert.Equal(t, "215.25", res.TotalAmount)
	})

	t.Run("Admin Cancel", func(t *testing.T) {
		id := create(t)
		w := env.executeRequest("POST", fmt.Sprintf("/v1/bookings/%s/cancel", id), nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		res := decode[bookingHttp.BookingResponse](t, w)
		require.NotNil(t, res.CancellationReason)
		assert.Equal(t, "Cancelled by admin", *res.CancellationReason)
	})
}

func TestWriteRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewContainer(Config{
		JWTSecret:       "test-secret",
		JWTTTL:          time.Minute,
		RateLimitPerMin: 1,
		RateLimitBurst:  1,
	})
	env := &testEnv{router: c.Router, jwtManager: c.JWTManager}
	token := env.token(t, customerID, auth.RoleCustomer)

	// The empty body fails binding but still spends the only token.
	w := env.executeRequest("POST", "/v1/bookings", map[string]any{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.executeRequest("POST", "/v1/bookings", map[string]any{}, token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Reads are not limited.
	w = env.executeRequest("GET", "/v1/bookings", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMemoryBackendWithShippedSeedFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	seed, err := user.LoadSeedFile("../../seed_users.example.json")
	require.NoError(t, err)

	// Wired the same way cmd/server does for STORAGE_BACKEND=memory.
	c := NewContainer(Config{JWTSecret: "test-secret", JWTTTL: time.Minute, SeedUsers: seed})
	env := &testEnv{router: c.Router, jwtManager: c.JWTManager}
	token := env.token(t, customerID, auth.RoleCustomer)

	w := env.executeRequest("GET", "/v1/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "customer", decode[userHttp.UserResponse](t, w).Role)

	body := bookingHttp.CreateBookingBody{
		ProviderID: providerID, ScheduledDate: time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02"),
		ScheduledTime: "08:00", DurationHours: 2, ServiceType: "OFFICE", Address: "9 Elm St",
	}
	w = env.executeRequest("POST", "/v1/bookings", body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "70.00", decode[bookingHttp.BookingResponse](t, w).Subtotal)
}

func TestMalformedIDsAreRejectedBeforeStorage(t *testing.T) {
	env := setupApp(t)
	customerToken := env.token(t, customerID, auth.RoleCustomer)
	adminToken := env.token(t, adminID, auth.RoleAdmin)

	body := bookingHttp.CreateBookingBody{
		ProviderID: "p-1", ScheduledDate: time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02"),
		ScheduledTime: "08:00", DurationHours: 2, ServiceType: "OFFICE", Address: "9 Elm St",
	}
	w := env.executeRequest("POST", "/v1/bookings", body, customerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.executeRequest("GET", "/v1/bookings?customer_id=not-a-uuid", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.executeRequest("GET", "/v1/users/not-a-uuid", nil, customerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
