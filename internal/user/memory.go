package user

import (
	"context"
	"sync"
)

// MemoryRepository keeps users in process memory. Used by the memory storage backend
// and by tests that need a seeded directory.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepository(seed ...*User) *MemoryRepository {
	r := &MemoryRepository{users: make(map[string]User)}
	for _, u := range seed {
		r.Save(u)
	}
	return r
}

// Save inserts or replaces a user.
func (r *MemoryRepository) Save(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) IncrementCompletedJobs(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.CompletedJobs++
	r.users[id] = u
	return nil
}
