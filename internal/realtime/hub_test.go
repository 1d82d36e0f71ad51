package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	full   bool
	closed bool
}

func (f *fakeConn) Send(msg []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, 0, len(f.msgs))
	for _, m := range f.msgs {
		var e Event
		require.NoError(t, json.Unmarshal(m, &e))
		out = append(out, e)
	}
	return out
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	conn := &fakeConn{}

	hub.Join("u-1", conn)
	hub.Join("u-1", conn)
	assert.Equal(t, 1, hub.Connections("u-1"))

	require.NoError(t, hub.Broadcast(context.Background(), "u-1", Event{Type: EventBookingUpdated, BookingID: "b-1", Status: "CONFIRMED"}))
	assert.Len(t, conn.events(t), 1)
}

func TestHub_LeaveRemovesOnlyThatConnection(t *testing.T) {
	hub := NewHub(nil)
	phone, laptop := &fakeConn{}, &fakeConn{}

	hub.Join("u-1", phone)
	hub.Join("u-1", laptop)
	assert.Equal(t, 2, hub.Connections("u-1"))

	hub.Leave("u-1", phone)
	assert.Equal(t, 1, hub.Connections("u-1"))

	// leaving twice, or leaving under the wrong user, changes nothing
	hub.Leave("u-1", phone)
	hub.Leave("u-2", laptop)
	assert.Equal(t, 1, hub.Connections("u-1"))

	require.NoError(t, hub.Broadcast(context.Background(), "u-1", Event{BookingID: "b-1", Status: "PENDING"}))
	assert.Empty(t, phone.events(t))
	assert.Len(t, laptop.events(t), 1)

	hub.Leave("u-1", laptop)
	assert.Equal(t, 0, hub.Connections("u-1"))
}

func TestHub_BroadcastFansOutToEveryDevice(t *testing.T) {
	hub := NewHub(nil)
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Join("u-1", a)
	hub.Join("u-1", b)
	hub.Join("u-2", other)

	evt := Event{
		Type:      EventBookingUpdated,
		BookingID: "b-9",
		Status:    "AWAITING_CONFIRMATION",
		Notification: &NotificationEvent{
			ID:    "n-1",
			Type:  "BOOKING_AWAITING_CONFIRMATION",
			Title: "Job finished",
		},
	}
	require.NoError(t, hub.Broadcast(context.Background(), "u-1", evt))

	for _, conn := range []*fakeConn{a, b} {
		got := conn.events(t)
		require.Len(t, got, 1)
		assert.Equal(t, "b-9", got[0].BookingID)
		assert.Equal(t, "AWAITING_CONFIRMATION", got[0].Status)
		require.NotNil(t, got[0].Notification)
		assert.Equal(t, "n-1", got[0].Notification.ID)
		assert.False(t, got[0].Timestamp.IsZero())
	}
	assert.Empty(t, other.events(t))
}

func TestHub_BroadcastWithoutSessions(t *testing.T) {
	hub := NewHub(nil)
	assert.NoError(t, hub.Broadcast(context.Background(), "nobody", Event{BookingID: "b-1"}))
	assert.Equal(t, 0, hub.Deliver("nobody", []byte("{}")))
}

func TestHub_DropsSlowConnection(t *testing.T) {
	hub := NewHub(nil)
	healthy, slow := &fakeConn{}, &fakeConn{full: true}
	hub.Join("u-1", healthy)
	hub.Join("u-1", slow)

	delivered := hub.Deliver("u-1", []byte(`{"bookingId":"b-1"}`))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, hub.Connections("u-1"))
	assert.True(t, slow.closed)
	assert.False(t, healthy.closed)
}

func TestHub_ConcurrentJoinLeaveBroadcast(t *testing.T) {
	hub := NewHub(nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			hub.Join("u-1", conn)
			_ = hub.Broadcast(context.Background(), "u-1", Event{BookingID: "b-1"})
			hub.Leave("u-1", conn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Connections("u-1"))
}

func TestRedisRelay_HandleDeliversLocally(t *testing.T) {
	hub := NewHub(nil)
	conn := &fakeConn{}
	hub.Join("u-1", conn)
	relay := NewRedisRelay(nil, "", hub, zap.NewNop())

	payload, err := json.Marshal(envelope{UserID: "u-1", Event: Event{BookingID: "b-3", Status: "COMPLETED"}})
	require.NoError(t, err)

	relay.handle(context.Background(), string(payload))
	relay.handle(context.Background(), "not json")
	relay.handle(context.Background(), `{"event":{"bookingId":"b-4"}}`)

	got := conn.events(t)
	require.Len(t, got, 1)
	assert.Equal(t, "b-3", got[0].BookingID)
	assert.Equal(t, DefaultRelayChannel, relay.channel)
}
