package fcm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Sender is the slice of the Firebase messaging client the gateway needs.
type Sender interface {
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

// SenderSource hands out a ready Sender or reports why none is available.
type SenderSource interface {
	Sender(ctx context.Context) (Sender, error)
}

type State int

const (
	Uninitialized State = iota
	Ready
	Unavailable
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Unavailable:
		return "unavailable"
	default:
		return "uninitialized"
	}
}

var (
	ErrUnavailable        = errors.New("fcm: provider unavailable")
	ErrMissingCredentials = errors.New("fcm: no firebase credentials configured")
)

// Provider lazily initializes the Firebase messaging client at most once.
// A failed initialization is cached and retried only after retryAfter.
type Provider struct {
	mu         sync.Mutex
	state      State
	sender     Sender
	lastErr    error
	failedAt   time.Time
	retryAfter time.Duration

	init func(ctx context.Context) (Sender, error)
	now  func() time.Time
	log  *zap.Logger
}

// NewProvider creates a provider backed by the given service-account file.
func NewProvider(credentialsFile string, retryAfter time.Duration, log *zap.Logger) *Provider {
	return newProvider(func(ctx context.Context) (Sender, error) {
		return newMessagingClient(ctx, credentialsFile)
	}, retryAfter, log)
}

func newProvider(init func(ctx context.Context) (Sender, error), retryAfter time.Duration, log *zap.Logger) *Provider {
	return &Provider{
		retryAfter: retryAfter,
		init:       init,
		now:        time.Now,
		log:        log.Named("fcm"),
	}
}

func newMessagingClient(ctx context.Context, credentialsFile string) (Sender, error) {
	var opts []option.ClientOption
	switch {
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	case os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "":
		return nil, ErrMissingCredentials
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return client, nil
}

// Sender returns the messaging client, initializing it on first use.
func (p *Provider) Sender(ctx context.Context) (Sender, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Ready:
		return p.sender, nil
	case Unavailable:
		if p.now().Sub(p.failedAt) < p.retryAfter {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, p.lastErr)
		}
	}

	sender, err := p.init(ctx)
	if err != nil {
		p.state = Unavailable
		p.lastErr = err
		p.failedAt = p.now()
		p.log.Warn("Push provider unavailable, push delivery disabled", zap.Error(err), zap.Duration("retry_after", p.retryAfter))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.state = Ready
	p.sender = sender
	p.lastErr = nil
	p.log.Info("Push provider initialized")
	return sender, nil
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
