package fcm

import (
	"context"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// maxBatchSize is the provider limit for a single SendEach call.
const maxBatchSize = 500

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
	// ClickAction is the in-app path to open when the notification is tapped
	ClickAction string
	Priority    string // high, normal or low
}

// Result summarizes one Send call.
type Result struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	// Degraded is set when the provider could not be initialized at all.
	Degraded bool
}

type Gateway struct {
	source      SenderSource
	timeout     time.Duration
	webBaseURL  string
	isPermanent func(error) bool
	log         *zap.Logger
}

func NewGateway(source SenderSource, timeout time.Duration, webBaseURL string, log *zap.Logger) *Gateway {
	return &Gateway{
		source:      source,
		timeout:     timeout,
		webBaseURL:  strings.TrimRight(webBaseURL, "/"),
		isPermanent: IsPermanent,
		log:         log.Named("fcm"),
	}
}

// Send delivers n to every token, one message per token. A failing token
// never aborts delivery to the others.
func (g *Gateway) Send(ctx context.Context, tokens []string, n NotificationData) Result {
	tokens = normalizeTokens(tokens)
	if len(tokens) == 0 {
		return Result{}
	}

	sender, err := g.source.Sender(ctx)
	if err != nil {
		g.log.Warn("Skipping push delivery", zap.Int("tokens", len(tokens)), zap.Error(err))
		return Result{Degraded: true}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var res Result
	for start := 0; start < len(tokens); start += maxBatchSize {
		end := min(start+maxBatchSize, len(tokens))
		g.sendChunk(ctx, sender, tokens[start:end], n, &res)
	}

	g.log.Info("Push batch sent",
		zap.Int("tokens", len(tokens)),
		zap.Int("success", res.SuccessCount),
		zap.Int("failure", res.FailureCount),
		zap.Int("invalid", len(res.InvalidTokens)))
	return res
}

func (g *Gateway) sendChunk(ctx context.Context, sender Sender, tokens []string, n NotificationData, res *Result) {
	messages := make([]*messaging.Message, len(tokens))
	for i, token := range tokens {
		messages[i] = g.buildMessage(token, n)
	}

	resp, err := sender.SendEach(ctx, messages)
	if err != nil {
		// Whole-chunk failures (timeout, transport) are transient.
		g.log.Warn("Push chunk failed", zap.Int("tokens", len(tokens)), zap.Error(err))
		res.FailureCount += len(tokens)
		return
	}

	for i, r := range resp.Responses {
		if i >= len(tokens) {
			break
		}
		if r.Success {
			res.SuccessCount++
			continue
		}
		res.FailureCount++
		if g.isPermanent(r.Error) {
			res.InvalidTokens = append(res.InvalidTokens, tokens[i])
			continue
		}
		g.log.Debug("Transient push failure", zap.String("token", redact(tokens[i])), zap.Error(r.Error))
	}
	// Responses missing from a short reply count as failures.
	if missing := len(tokens) - len(resp.Responses); missing > 0 {
		res.FailureCount += missing
	}
}

func (g *Gateway) buildMessage(token string, n NotificationData) *messaging.Message {
	androidPriority, apnsPriority := "normal", "5"
	if n.Priority == "high" {
		androidPriority, apnsPriority = "high", "10"
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.ImageURL,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				ChannelID: "news",
				ImageURL:  n.ImageURL,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:          "default",
					MutableContent: n.ImageURL != "",
				},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: n.Title,
				Body:  n.Body,
				Icon:  "/icon-192.png",
				Image: n.ImageURL,
			},
		},
	}
	if link := g.webLink(n.ClickAction); link != "" {
		msg.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: link}
	}
	return msg
}

// webLink turns an in-app path into the absolute HTTPS URL webpush requires.
func (g *Gateway) webLink(path string) string {
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(g.webBaseURL, "https://") && strings.HasPrefix(path, "/"):
		return g.webBaseURL + path
	default:
		return ""
	}
}

// IsPermanent reports whether a per-token error means the token will never
// succeed again.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
		return true
	}
	if messaging.IsInvalidArgument(err) {
		return strings.Contains(strings.ToLower(err.Error()), "registration token")
	}
	return false
}

func normalizeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func redact(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
