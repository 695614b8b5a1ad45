package domain

import (
	"fmt"
	"strings"
)

// MaxTokensPerChannel caps each token collection; the oldest entries are evicted.
const MaxTokensPerChannel = 10

// Kind tags the recipient variant.
type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Channel is a push delivery channel.
type Channel string

const (
	ChannelWeb    Channel = "web"
	ChannelMobile Channel = "mobile"
)

// TargetRef identifies one recipient row.
type TargetRef struct {
	Kind Kind
	ID   string
}

// Target is anything that can hold push tokens and receive notifications.
type Target interface {
	Ref() TargetRef
	WebTokens() []string
	MobileTokens() []string
	PushEnabled() bool
}

// Tokens returns every token of t, web first.
func Tokens(t Target) []string {
	web, mobile := t.WebTokens(), t.MobileTokens()
	out := make([]string, 0, len(web)+len(mobile))
	out = append(out, web...)
	return append(out, mobile...)
}

// ChannelForPlatform maps a client platform name to its channel.
func ChannelForPlatform(platform string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "web", "browser":
		return ChannelWeb, nil
	case "mobile", "android", "ios":
		return ChannelMobile, nil
	default:
		return "", &ValidationError{Field: "platform", Message: fmt.Sprintf("unsupported platform %q", platform)}
	}
}
