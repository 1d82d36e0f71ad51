package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/realtime"
)

func setupServer(t *testing.T, allowed []string) (*httptest.Server, *realtime.Hub, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := auth.NewJWTManager("test-secret", time.Minute)
	hub := realtime.NewHub(zap.NewNop())

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(hub, allowed, zap.NewNop()), auth.AuthRequired(jwtManager))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, jwtManager
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	if token != "" {
		u += "?access_token=" + token
	}
	return u
}

func TestConnect_ReceivesBroadcasts(t *testing.T) {
	srv, hub, jwtManager := setupServer(t, nil)

	token, err := jwtManager.GenerateAccessToken("c-1", auth.RoleCustomer)
	require.NoError(t, err)

	phone, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	defer phone.Close()

	laptop, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Connections("c-1") == 2 }, 2*time.Second, 10*time.Millisecond)

	err = hub.Broadcast(context.Background(), "c-1", realtime.Event{
		Type:      realtime.EventBookingUpdated,
		BookingID: "b-1",
		Status:    "CONFIRMED",
	})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{phone, laptop} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var evt realtime.Event
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, "b-1", evt.BookingID)
		assert.Equal(t, "CONFIRMED", evt.Status)
	}

	// closing one device leaves the other registered
	require.NoError(t, laptop.Close())
	require.Eventually(t, func() bool { return hub.Connections("c-1") == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnect_RequiresToken(t *testing.T) {
	srv, _, _ := setupServer(t, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnect_RejectsForeignOrigin(t *testing.T) {
	srv, hub, jwtManager := setupServer(t, []string{"https://app.example.com/"})

	token, err := jwtManager.GenerateAccessToken("p-1", auth.RoleProvider)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://app.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Connections("p-1") == 1 }, 2*time.Second, 10*time.Millisecond)
}
