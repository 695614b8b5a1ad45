package domain

import (
	"time"

	"github.com/lib/pq"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBlocked  UserStatus = "blocked"
)

// Preference keys that events may require.
const (
	PrefBreakingNews = "breaking_news"
	PrefLocalNews    = "local_news"
	PrefEpaper       = "epaper"
	PrefSubscription = "subscription"
)

// Preferences are tri-state: nil means the user never chose, which counts as enabled.
type Preferences struct {
	Push         *bool `json:"push,omitempty"`
	BreakingNews *bool `json:"breaking_news,omitempty"`
	LocalNews    *bool `json:"local_news,omitempty"`
	Epaper       *bool `json:"epaper,omitempty"`
	Subscription *bool `json:"subscription,omitempty"`
}

// Allows reports whether the preference named key is not explicitly disabled.
func (p Preferences) Allows(key string) bool {
	var v *bool
	switch key {
	case PrefBreakingNews:
		v = p.BreakingNews
	case PrefLocalNews:
		v = p.LocalNews
	case PrefEpaper:
		v = p.Epaper
	case PrefSubscription:
		v = p.Subscription
	}
	return v == nil || *v
}

// RegisteredUser is an account holder.
type RegisteredUser struct {
	ID                 string         `json:"id" gorm:"primaryKey"`
	Name               string         `json:"name"`
	Phone              string         `json:"phone" gorm:"uniqueIndex"`
	Status             UserStatus     `json:"status" gorm:"index;not null;default:active"`
	SelectedCategories pq.StringArray `json:"selected_categories" gorm:"type:text[];not null;default:'{}'"`
	Preferences        Preferences    `json:"preferences" gorm:"embedded;embeddedPrefix:pref_"`
	WebPushTokens      pq.StringArray `json:"-" gorm:"column:web_tokens;type:text[];not null;default:'{}'"`
	MobilePushTokens   pq.StringArray `json:"-" gorm:"column:mobile_tokens;type:text[];not null;default:'{}'"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (RegisteredUser) TableName() string {
	return "users"
}

func (u *RegisteredUser) Ref() TargetRef         { return TargetRef{Kind: KindUser, ID: u.ID} }
func (u *RegisteredUser) WebTokens() []string    { return u.WebPushTokens }
func (u *RegisteredUser) MobileTokens() []string { return u.MobilePushTokens }
func (u *RegisteredUser) PushEnabled() bool      { return u.Preferences.Push == nil || *u.Preferences.Push }

// Allows reports whether u accepts notifications gated by pref.
func (u *RegisteredUser) Allows(pref string) bool { return u.Preferences.Allows(pref) }

func (u *RegisteredUser) IsActive() bool {
	return u.Status == UserStatusActive
}
