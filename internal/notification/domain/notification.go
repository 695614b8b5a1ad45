package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultTTL is how long a record is kept before the expiry sweep removes it.
const DefaultTTL = 30 * 24 * time.Hour

// Notification is the durable per-recipient record.
type Notification struct {
	ID          string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RecipientID string            `json:"recipientId" gorm:"type:varchar(64);index:idx_notifications_recipient_sent,priority:1;not null"`
	Title       string            `json:"title" gorm:"not null"`
	Message     string            `json:"message" gorm:"not null"`
	Type        NotificationType  `json:"type" gorm:"index;not null"`
	Data        datatypes.JSONMap `json:"data"`
	IsRead      bool              `json:"isRead" gorm:"not null;default:false"`
	SentAt      time.Time         `json:"sentAt" gorm:"index:idx_notifications_recipient_sent,priority:2,sort:desc;not null"`
	ReadAt      *time.Time        `json:"readAt"`
	ExpiresAt   time.Time         `json:"expiresAt" gorm:"index;not null"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Filter narrows a list query. Nil fields are not applied.
type Filter struct {
	Type   *NotificationType
	IsRead *bool
}

// Page is one page of records plus pagination metadata.
type Page struct {
	Items      []Notification `json:"notifications"`
	Page       int            `json:"currentPage"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
	Total      int64          `json:"totalCount"`
	HasNext    bool           `json:"hasNext"`
	HasPrev    bool           `json:"hasPrev"`
}

type TypeStats struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}

type Stats struct {
	Total  int64                          `json:"total"`
	Unread int64                          `json:"unread"`
	ByType map[NotificationType]TypeStats `json:"byType"`
}
