package domain

import "time"

// EventKind names the domain event that triggers a fan-out.
type EventKind string

const (
	EventArticlePublished     EventKind = "article_published"
	EventBreakingNews         EventKind = "breaking_news"
	EventEpaperUploaded       EventKind = "epaper_uploaded"
	EventCategoryNews         EventKind = "category_news"
	EventCustom               EventKind = "custom"
	EventSubscriptionReminder EventKind = "subscription_reminder"
)

// Event is a content or account event submitted by the CMS, the Pub/Sub
// topic or the reminder scheduler. Struct tags cover field formats; the
// per-kind requirements live in usecase.ValidateEvent.
type Event struct {
	Kind     EventKind `json:"kind" validate:"required,oneof=article_published breaking_news epaper_uploaded category_news custom subscription_reminder"`
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title" validate:"max=300"`
	Body     string    `json:"body,omitempty"`
	Category string    `json:"category,omitempty" validate:"required_if=Kind category_news"`
	District string    `json:"district,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Date     time.Time `json:"date,omitempty"`
	Language string    `json:"language,omitempty" validate:"omitempty,len=2"`

	// Custom messages and reminders target explicit recipients.
	URL     string   `json:"url,omitempty"`
	UserID  string   `json:"userId,omitempty" validate:"required_if=Kind subscription_reminder"`
	UserIDs []string `json:"userIds,omitempty" validate:"omitempty,dive,required"`
	// ExpiresAt is the subscription end for reminders.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type AudienceMode string

const (
	AudienceSingle   AudienceMode = "single"
	AudienceUsers    AudienceMode = "users"
	AudienceAll      AudienceMode = "all"
	AudienceCategory AudienceMode = "category"
)

// Audience describes who an event is for. Preference names a per-event
// opt-out that must not be explicitly disabled.
type Audience struct {
	Mode       AudienceMode
	UserIDs    []string
	Category   string
	Preference string
}
