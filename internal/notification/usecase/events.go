package usecase

import (
	"fmt"
	"strings"

	"newsroom-backend/internal/notification/domain"

	"github.com/go-playground/validator/v10"
)

// EventValidator checks incoming events before they are dispatched.
type EventValidator struct {
	validator *validator.Validate
}

func NewEventValidator() *EventValidator {
	return &EventValidator{validator: validator.New()}
}

// Validate applies the struct tags, then the requirements of ev.Kind.
func (v *EventValidator) Validate(ev *domain.Event) error {
	if err := v.validator.Struct(ev); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if ok && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return &domain.ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on '%s' validation", fe.Tag()),
			}
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	switch ev.Kind {
	case domain.EventArticlePublished, domain.EventBreakingNews, domain.EventEpaperUploaded, domain.EventCategoryNews:
		if strings.TrimSpace(ev.ID) == "" {
			return &domain.ValidationError{Field: "ID", Message: "content id is required"}
		}
	}
	if ev.Kind != domain.EventSubscriptionReminder && ev.Kind != domain.EventEpaperUploaded && strings.TrimSpace(ev.Title) == "" {
		return &domain.ValidationError{Field: "Title", Message: "title is required"}
	}
	if ev.Kind == domain.EventSubscriptionReminder && ev.ExpiresAt.IsZero() {
		return &domain.ValidationError{Field: "ExpiresAt", Message: "expiry date is required"}
	}
	return nil
}
