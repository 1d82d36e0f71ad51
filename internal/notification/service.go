package notification

//go:generate mockgen -source=service.go -destination=mocks/mock_service.go -package=mocks

import (
	"context"
	"strings"
)

type CreateRequest struct {
	RecipientUserID string
	BookingID       string
	Type            Type
	Title           string
	Message         string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Notification, error)
	List(ctx context.Context, filter Filter) ([]*Notification, int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Notification, error) {
	if strings.TrimSpace(req.RecipientUserID) == "" {
		return nil, ErrRecipientRequired
	}
	if !req.Type.Valid() {
		return nil, ErrInvalidType
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTitleRequired
	}

	n := &Notification{
		RecipientUserID: req.RecipientUserID,
		BookingID:       req.BookingID,
		Type:            req.Type,
		Title:           req.Title,
		Message:         req.Message,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Notification, int, error) {
	if strings.TrimSpace(filter.RecipientUserID) == "" {
		return nil, 0, ErrRecipientRequired
	}
	return s.repo.List(ctx, filter)
}
