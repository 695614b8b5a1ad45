package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsroom-backend/internal/notification/domain"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Publisher accepts validated events for fan-out.
type Publisher interface {
	Publish(ev domain.Event) error
}

// Subscriber consumes content events published by the CMS on Pub/Sub.
type Subscriber struct {
	client    *pubsub.Client
	publisher Publisher
	topicName string
	subName   string
	log       *zap.SugaredLogger
}

func NewSubscriber(ctx context.Context, projectID, topicName, subName, credentialsFile string, publisher Publisher, log *zap.Logger) (*Subscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	// accept full resource names like projects/p/topics/t
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}
	if subName == "" {
		subName = topicName + "-sub"
	}

	return &Subscriber{
		client:    client,
		publisher: publisher,
		topicName: topicName,
		subName:   subName,
		log:       log.Sugar().Named("pubsub"),
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) {
	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		s.log.Errorw("event intake disabled", "topic", s.topicName, "subscription", s.subName, "error", err)
		return
	}

	s.log.Infow("listening for content events", "subscription", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.handle(msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorw("receiving messages failed", "error", err)
	}
}

func (s *Subscriber) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.client.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist", s.topicName)
	}

	sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	s.log.Infow("created subscription", "subscription", s.subName, "topic", s.topicName)
	return sub, nil
}

// handle reports whether the message should be acked. Malformed or invalid
// events are acked so they are not redelivered forever; a full queue nacks
// for a later retry.
func (s *Subscriber) handle(data []byte) bool {
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warnw("dropping malformed event", "error", err, "size", len(data))
		return true
	}

	err := s.publisher.Publish(ev)
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return true
	case errors.As(err, &verr), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownEvent):
		s.log.Warnw("dropping invalid event", "event_type", ev.Kind, "id", ev.ID, "error", err)
		return true
	default:
		s.log.Warnw("event not queued, will retry", "event_type", ev.Kind, "id", ev.ID, "error", err)
		return false
	}
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}
