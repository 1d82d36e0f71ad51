package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopPublisher(t *testing.T) {
	p := NewNopPublisher()
	assert.NoError(t, p.PublishJSON(context.Background(), "booking.created", map[string]string{"id": "b-1"}))
	assert.NoError(t, p.Close())
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.PublishJSON(context.Background(), "booking.created", map[string]string{"bookingId": "b-1"}))
	require.NoError(t, r.PublishJSON(context.Background(), "booking.confirmed", map[string]string{"bookingId": "b-1"}))

	assert.Equal(t, []string{"booking.created", "booking.confirmed"}, r.Keys())

	var body map[string]string
	require.NoError(t, json.Unmarshal(r.Messages()[0].Body, &body))
	assert.Equal(t, "b-1", body["bookingId"])

	r.Err = errors.New("broker down")
	assert.Error(t, r.PublishJSON(context.Background(), "booking.started", nil))
	assert.Len(t, r.Messages(), 2)
}
