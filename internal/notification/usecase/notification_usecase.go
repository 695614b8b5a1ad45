package usecase

import (
	"context"

	"newsroom-backend/internal/notification/domain"
	"newsroom-backend/internal/notification/repository"
)

type EventDispatcher interface {
	Dispatch(ev domain.Event) bool
}

// NotificationUsecase serves the recipient-facing history endpoints and
// accepts events for fan-out.
type NotificationUsecase interface {
	List(ctx context.Context, recipientID string, filter domain.Filter, page, limit int) (*domain.Page, error)
	Stats(ctx context.Context, recipientID string) (*domain.Stats, error)
	MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, typ *domain.NotificationType) (int64, error)
	Remove(ctx context.Context, recipientID, id string) error
	// Publish validates ev and queues it; it does not wait for delivery.
	Publish(ev domain.Event) error
}

type notificationUsecase struct {
	repo       repository.NotificationRepository
	dispatcher EventDispatcher
	validator  *EventValidator
}

func NewNotificationUsecase(repo repository.NotificationRepository, dispatcher EventDispatcher, validator *EventValidator) NotificationUsecase {
	return &notificationUsecase{repo: repo, dispatcher: dispatcher, validator: validator}
}

func (u *notificationUsecase) List(ctx context.Context, recipientID string, filter domain.Filter, page, limit int) (*domain.Page, error) {
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, &domain.ValidationError{Field: "type", Message: "unknown notification type"}
	}
	return u.repo.List(ctx, recipientID, filter, page, limit)
}

func (u *notificationUsecase) Stats(ctx context.Context, recipientID string) (*domain.Stats, error) {
	return u.repo.Stats(ctx, recipientID)
}

func (u *notificationUsecase) MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error) {
	return u.repo.MarkRead(ctx, recipientID, id)
}

func (u *notificationUsecase) MarkAllRead(ctx context.Context, recipientID string, typ *domain.NotificationType) (int64, error) {
	if typ != nil && !typ.Valid() {
		return 0, &domain.ValidationError{Field: "type", Message: "unknown notification type"}
	}
	return u.repo.MarkAllRead(ctx, recipientID, typ)
}

func (u *notificationUsecase) Remove(ctx context.Context, recipientID, id string) error {
	return u.repo.Remove(ctx, recipientID, id)
}

func (u *notificationUsecase) Publish(ev domain.Event) error {
	if err := u.validator.Validate(&ev); err != nil {
		return err
	}
	if !u.dispatcher.Dispatch(ev) {
		return domain.ErrQueueFull
	}
	return nil
}
