package user

import (
	"context"
	"strings"
)

// Service is the user directory as seen by the booking core: id-keyed reads and the
// provider job counter. Profile management lives in another service.
type Service interface {
	GetByID(ctx context.Context, id string) (*User, error)
	IncrementCompletedJobs(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) IncrementCompletedJobs(ctx context.Context, id string) error {
	return s.repo.IncrementCompletedJobs(ctx, id)
}
