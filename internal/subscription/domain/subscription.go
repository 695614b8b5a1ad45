package domain

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Subscription is a paid reader plan. Only the fields the reminder job
// reads are mapped here.
type Subscription struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	UserID         string     `json:"userId" gorm:"index;not null"`
	Plan           string     `json:"plan"`
	Status         Status     `json:"status" gorm:"index;not null;default:active"`
	ExpiresAt      time.Time  `json:"expiresAt" gorm:"index;not null"`
	ReminderSentAt *time.Time `json:"reminderSentAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
