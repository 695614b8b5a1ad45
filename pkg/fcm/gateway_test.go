package fcm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	errGone  = errors.New("token gone")
	errFlaky = errors.New("service unavailable")
)

// fakeSender answers per token from a lookup table; unknown tokens succeed.
type fakeSender struct {
	mu      sync.Mutex
	calls   int
	batches [][]*messaging.Message
	errs    map[string]error
	callErr error
}

func (f *fakeSender) SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, messages)
	if f.callErr != nil {
		return nil, f.callErr
	}

	resp := &messaging.BatchResponse{}
	for _, m := range messages {
		if err, ok := f.errs[m.Token]; ok {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: false, Error: err})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "id-" + m.Token})
	}
	return resp, nil
}

type staticSource struct {
	sender Sender
	err    error
}

func (s staticSource) Sender(context.Context) (Sender, error) { return s.sender, s.err }

func newTestGateway(sender Sender) *Gateway {
	g := NewGateway(staticSource{sender: sender}, time.Second, "https://news.example.com", zap.NewNop())
	g.isPermanent = func(err error) bool { return errors.Is(err, errGone) }
	return g
}

func TestGatewayClassifiesPerTokenOutcomes(t *testing.T) {
	sender := &fakeSender{errs: map[string]error{"T2": errGone, "T3": errFlaky}}
	g := newTestGateway(sender)

	res := g.Send(context.Background(), []string{"T1", "T2", "T3"}, NotificationData{Title: "t", Body: "b"})

	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 2, res.FailureCount)
	assert.Equal(t, []string{"T2"}, res.InvalidTokens)
	assert.False(t, res.Degraded)
	assert.Equal(t, 1, sender.calls)
}

func TestGatewayEmptyInputIsNoop(t *testing.T) {
	sender := &fakeSender{}
	g := newTestGateway(sender)

	assert.Equal(t, Result{}, g.Send(context.Background(), nil, NotificationData{}))
	assert.Equal(t, Result{}, g.Send(context.Background(), []string{"", "  "}, NotificationData{}))
	assert.Zero(t, sender.calls)
}

func TestGatewayDedupesTokens(t *testing.T) {
	sender := &fakeSender{}
	g := newTestGateway(sender)

	res := g.Send(context.Background(), []string{"a", " a ", "b", "a"}, NotificationData{})

	assert.Equal(t, 2, res.SuccessCount)
	require.Len(t, sender.batches, 1)
	assert.Len(t, sender.batches[0], 2)
}

func TestGatewayChunksLargeBatches(t *testing.T) {
	sender := &fakeSender{}
	g := newTestGateway(sender)

	tokens := make([]string, 1001)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d", i)
	}
	res := g.Send(context.Background(), tokens, NotificationData{})

	assert.Equal(t, 1001, res.SuccessCount)
	require.Equal(t, 3, sender.calls)
	assert.Len(t, sender.batches[0], maxBatchSize)
	assert.Len(t, sender.batches[2], 1)
}

func TestGatewayCallErrorIsTransient(t *testing.T) {
	sender := &fakeSender{callErr: context.DeadlineExceeded}
	g := newTestGateway(sender)

	res := g.Send(context.Background(), []string{"a", "b"}, NotificationData{})

	assert.Zero(t, res.SuccessCount)
	assert.Equal(t, 2, res.FailureCount)
	assert.Empty(t, res.InvalidTokens)
}

func TestGatewayDegradesWithoutProvider(t *testing.T) {
	g := NewGateway(staticSource{err: ErrUnavailable}, time.Second, "", zap.NewNop())

	res := g.Send(context.Background(), []string{"a"}, NotificationData{})

	assert.True(t, res.Degraded)
	assert.Zero(t, res.SuccessCount)
	assert.Zero(t, res.FailureCount)
}

func TestBuildMessage(t *testing.T) {
	g := newTestGateway(&fakeSender{})

	high := g.buildMessage("tok", NotificationData{
		Title:       "Breaking",
		Body:        "body",
		ImageURL:    "https://cdn.example.com/a.jpg",
		Data:        map[string]string{"type": "breaking_news"},
		ClickAction: "/news/42",
		Priority:    "high",
	})
	assert.Equal(t, "tok", high.Token)
	assert.Equal(t, "high", high.Android.Priority)
	assert.Equal(t, "10", high.APNS.Headers["apns-priority"])
	assert.True(t, high.APNS.Payload.Aps.MutableContent)
	require.NotNil(t, high.Webpush.FCMOptions)
	assert.Equal(t, "https://news.example.com/news/42", high.Webpush.FCMOptions.Link)
	assert.Equal(t, "breaking_news", high.Data["type"])

	normal := g.buildMessage("tok", NotificationData{Title: "t", Body: "b"})
	assert.Equal(t, "normal", normal.Android.Priority)
	assert.Equal(t, "5", normal.APNS.Headers["apns-priority"])
	assert.Nil(t, normal.Webpush.FCMOptions)
}

func TestWebLink(t *testing.T) {
	g := NewGateway(staticSource{}, time.Second, "https://news.example.com/", zap.NewNop())
	assert.Equal(t, "https://news.example.com/epaper/1", g.webLink("/epaper/1"))
	assert.Equal(t, "https://other.example.com/x", g.webLink("https://other.example.com/x"))
	assert.Empty(t, g.webLink(""))

	insecure := NewGateway(staticSource{}, time.Second, "http://localhost:3000", zap.NewNop())
	assert.Empty(t, insecure.webLink("/news/1"))
}

func TestIsPermanentIgnoresPlainErrors(t *testing.T) {
	assert.False(t, IsPermanent(nil))
	assert.False(t, IsPermanent(errFlaky))
}
