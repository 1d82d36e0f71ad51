package booking

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// memoryRepository serialises every write behind one mutex, which gives
// CompareAndUpdate the same atomicity as the row lock in Postgres.
type memoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
	history  map[string][]*HistoryEntry
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		bookings: make(map[string]*Booking),
		history:  make(map[string][]*HistoryEntry),
	}
}

func (r *memoryRepository) Create(ctx context.Context, b *Booking, change Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b.ID = uuid.NewString()
	stored := clone(b)
	r.bookings[b.ID] = stored
	r.appendHistory(b.ID, "", b.Status, change)
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b), nil
}

func (r *memoryRepository) CompareAndUpdate(ctx context.Context, id string, expected []Status, change Change, mutate Mutator) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A caller that has gone away commits nothing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !slices.Contains(expected, current.Status) {
		return nil, &TransitionError{Transition: change.Transition, Current: current.Status}
	}

	working := clone(current)
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.Version = current.Version + 1

	r.bookings[id] = working
	r.appendHistory(id, current.Status, working.Status, change)
	return clone(working), nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	r.mu.RLock()
	var matched []*Booking
	for _, b := range r.bookings {
		if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
			continue
		}
		if filter.ProviderID != "" && b.ProviderID != filter.ProviderID {
			continue
		}
		if filter.PartyID != "" && b.CustomerID != filter.PartyID && b.ProviderID != filter.PartyID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		matched = append(matched, clone(b))
	}
	r.mu.RUnlock()

	asc := strings.EqualFold(filter.SortOrder, "asc")
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate) == asc
		}
		if a.ScheduledTime != b.ScheduledTime {
			return (a.ScheduledTime < b.ScheduledTime) == asc
		}
		return a.ID < b.ID
	})

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (r *memoryRepository) ListHistory(_ context.Context, bookingID string) ([]*HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.history[bookingID]
	out := make([]*HistoryEntry, len(src))
	for i, e := range src {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

func (r *memoryRepository) appendHistory(bookingID string, from, to Status, change Change) {
	r.history[bookingID] = append(r.history[bookingID], &HistoryEntry{
		ID:         uuid.NewString(),
		BookingID:  bookingID,
		FromStatus: from,
		ToStatus:   to,
		Transition: change.Transition,
		ActorID:    change.ActorID,
		ActorRole:  change.ActorRole,
		Reason:     change.Reason,
		CreatedAt:  change.At,
	})
}

// clone deep-copies the pointer fields so callers never share state with the store.
func clone(b *Booking) *Booking {
	cp := *b
	cp.ConfirmedAt = copyPtr(b.ConfirmedAt)
	cp.StartedAt = copyPtr(b.StartedAt)
	cp.CompletedAt = copyPtr(b.CompletedAt)
	cp.CancelledAt = copyPtr(b.CancelledAt)
	cp.CancellationReason = copyPtr(b.CancellationReason)
	return &cp
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
