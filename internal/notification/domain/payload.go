package domain

import "fmt"

type NotificationType string

const (
	TypeBreakingNews         NotificationType = "breaking_news"
	TypeNewNews              NotificationType = "new_news"
	TypeNewEpaper            NotificationType = "new_epaper"
	TypeCustom               NotificationType = "custom"
	TypeCategoryNews         NotificationType = "category_news"
	TypeSubscriptionReminder NotificationType = "subscription_reminder"
)

// Valid reports whether t belongs to the closed set of notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeBreakingNews, TypeNewNews, TypeNewEpaper, TypeCustom, TypeCategoryNews, TypeSubscriptionReminder:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// PayloadData holds the auxiliary routing fields of a notification.
type PayloadData struct {
	ContentID string   `json:"contentId,omitempty"`
	Category  string   `json:"category,omitempty"`
	District  string   `json:"district,omitempty"`
	Priority  Priority `json:"priority"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Preview   string   `json:"preview,omitempty"`
	URL       string   `json:"url,omitempty"`
}

// Payload is the channel-agnostic notification built once per event.
type Payload struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Type  NotificationType `json:"type"`
	Data  PayloadData      `json:"data"`
}

// Map returns the data fields for persistence, omitting empty values.
func (d PayloadData) Map() map[string]interface{} {
	out := map[string]interface{}{"priority": string(d.Priority)}
	for k, v := range map[string]string{
		"contentId": d.ContentID,
		"category":  d.Category,
		"district":  d.District,
		"imageUrl":  d.ImageURL,
		"preview":   d.Preview,
		"url":       d.URL,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// StringData flattens the payload for provider data fields, which only carry strings.
func (p Payload) StringData() map[string]string {
	out := map[string]string{"type": string(p.Type)}
	for k, v := range p.Data.Map() {
		out[k] = fmt.Sprint(v)
	}
	return out
}
