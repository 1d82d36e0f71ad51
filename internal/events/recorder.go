package events

import (
	"context"
	"encoding/json"
	"sync"
)

// Message is a published event as seen by a Recorder.
type Message struct {
	Key  string
	Body json.RawMessage
}

// Recorder is a Publisher that keeps events in memory, for tests.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	Err  error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) PublishJSON(_ context.Context, key string, v any) error {
	if r.Err != nil {
		return r.Err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Key: key, Body: b})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Keys returns the routing keys in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Key
	}
	return out
}
