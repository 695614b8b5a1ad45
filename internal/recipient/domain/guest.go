package domain

import (
	"time"

	"github.com/lib/pq"
)

// GuestUser is an unauthenticated device. It can hold tokens and receive
// broadcast notifications but never takes part in category targeting.
type GuestUser struct {
	ID               string         `json:"id" gorm:"primaryKey"`
	DeviceID         string         `json:"device_id" gorm:"uniqueIndex;not null"`
	Push             *bool          `json:"push,omitempty" gorm:"column:pref_push"`
	WebPushTokens    pq.StringArray `json:"-" gorm:"column:web_tokens;type:text[];not null;default:'{}'"`
	MobilePushTokens pq.StringArray `json:"-" gorm:"column:mobile_tokens;type:text[];not null;default:'{}'"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (GuestUser) TableName() string {
	return "guests"
}

func (g *GuestUser) Ref() TargetRef         { return TargetRef{Kind: KindGuest, ID: g.ID} }
func (g *GuestUser) WebTokens() []string    { return g.WebPushTokens }
func (g *GuestUser) MobileTokens() []string { return g.MobilePushTokens }
func (g *GuestUser) PushEnabled() bool      { return g.Push == nil || *g.Push }
