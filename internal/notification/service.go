package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/validation"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=notification
type Repository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
}

type Service struct {
	repo Repository
	pub  live.Publisher
}

func NewService(repo Repository, pub live.Publisher) *Service {
	return &Service{repo: repo, pub: pub}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, body string) (*Notification, error) {
	var p validation.Problems

	p.Require("title", title)

	if err := p.Err(); err != nil {
		return nil, err
	}

	n := &Notification{
		UserID: userID,
		Title:  strings.TrimSpace(title),
		Body:   strings.TrimSpace(body),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	s.publish(userID, live.KindCreated, n.ID.String())

	return n, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error) {
	return s.repo.ListNotifications(ctx, userID, unreadOnly)
}

// UnreadCount backs the badge on the notifications tab.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return err
	}

	s.publish(userID, live.KindUpdated, id.String())

	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}

	if n > 0 {
		s.publish(userID, live.KindUpdated, "")
	}

	return n, nil
}

func (s *Service) publish(userID uuid.UUID, kind live.Kind, id string) {
	if s.pub == nil {
		return
	}

	s.pub.Publish(live.Event{
		Topic: live.Topic{UserID: userID, Collection: live.Notifications},
		Kind:  kind,
		ID:    id,
	})
}
