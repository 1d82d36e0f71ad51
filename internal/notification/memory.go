package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu    sync.RWMutex
	items []Notification
	now   func() time.Time
}

// NewMemoryRepository returns an in-process Repository for the memory storage backend.
func NewMemoryRepository() Repository {
	return &memoryRepository{now: func() time.Time { return time.Now().UTC() }}
}

func (r *memoryRepository) Create(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = uuid.NewString()
	n.CreatedAt = r.now()
	r.items = append(r.items, *n)
	return nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*Notification, int, error) {
	r.mu.RLock()
	var matched []*Notification
	for i := range r.items {
		n := r.items[i]
		if n.RecipientUserID != filter.RecipientUserID {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		matched = append(matched, &n)
	}
	r.mu.RUnlock()

	// items are appended in creation order; newest first unless asked otherwise
	if !strings.EqualFold(filter.SortOrder, "asc") {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

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
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
