package usecase

import (
	"context"
	"sync"
	"time"

	"newsroom-backend/internal/notification/domain"
	rdomain "newsroom-backend/internal/recipient/domain"
	"newsroom-backend/pkg/fcm"

	"go.uber.org/zap"
)

type State string

const (
	StateComposing        State = "composing"
	StateAudienceResolved State = "audience_resolved"
	StateDelivering       State = "delivering"
	StateCleaning         State = "cleaning"
	StatePersisting       State = "persisting"
	StateDone             State = "done"
)

type EventComposer interface {
	Compose(ev domain.Event) (domain.Payload, error)
}

type AudienceResolver interface {
	Resolve(ctx context.Context, a domain.Audience) ([]rdomain.Target, error)
}

type PushGateway interface {
	Send(ctx context.Context, tokens []string, n fcm.NotificationData) fcm.Result
}

type TokenCleaner interface {
	Clean(ctx context.Context, tokens []string)
}

type RecordStore interface {
	CreateMany(ctx context.Context, recipientIDs []string, payload domain.Payload) (int, error)
}

// Report describes how far one fan-out got. Err holds the step failure that
// stopped it early, if any.
type Report struct {
	Event      domain.EventKind
	State      State
	Recipients int
	Tokens     int
	Success    int
	Failure    int
	Invalid    int
	Degraded   bool
	Persisted  int
	Err        error
}

// Fanout runs one event end to end: compose, resolve the audience, deliver,
// prune dead tokens and persist a record per resolved recipient.
type Fanout struct {
	composer     EventComposer
	audience     AudienceResolver
	gateway      PushGateway
	cleaner      TokenCleaner
	store        RecordStore
	cleanTimeout time.Duration
	log          *zap.SugaredLogger

	cleanups sync.WaitGroup
}

func NewFanout(composer EventComposer, audience AudienceResolver, gateway PushGateway, cleaner TokenCleaner, store RecordStore, log *zap.Logger) *Fanout {
	return &Fanout{
		composer:     composer,
		audience:     audience,
		gateway:      gateway,
		cleaner:      cleaner,
		store:        store,
		cleanTimeout: 30 * time.Second,
		log:          log.Sugar().Named("fanout"),
	}
}

// Run never returns an error to the caller; failures are logged and
// reported.
func (f *Fanout) Run(ctx context.Context, ev domain.Event) Report {
	rep := Report{Event: ev.Kind, State: StateComposing}

	payload, err := f.composer.Compose(ev)
	if err != nil {
		rep.Err = err
		f.log.Errorw("compose failed", "event_type", ev.Kind, "recipients", 0, "tokens", 0, "error", err)
		return rep
	}

	targets, err := f.audience.Resolve(ctx, AudienceFor(ev))
	if err != nil {
		rep.Err = err
		f.log.Errorw("audience resolution failed", "event_type", ev.Kind, "recipients", 0, "tokens", 0, "error", err)
		return rep
	}
	rep.State = StateAudienceResolved
	rep.Recipients = len(targets)
	if len(targets) == 0 {
		rep.State = StateDone
		f.log.Infow("no recipients", "event_type", ev.Kind, "recipients", 0, "tokens", 0)
		return rep
	}

	tokens, ids := collect(targets)
	rep.Tokens = len(tokens)

	rep.State = StateDelivering
	if len(tokens) > 0 {
		res := f.gateway.Send(ctx, tokens, toNotificationData(payload))
		rep.Success, rep.Failure = res.SuccessCount, res.FailureCount
		rep.Invalid, rep.Degraded = len(res.InvalidTokens), res.Degraded

		if len(res.InvalidTokens) > 0 {
			rep.State = StateCleaning
			f.cleanAsync(res.InvalidTokens)
		}
	}

	rep.State = StatePersisting
	persisted, err := f.store.CreateMany(ctx, ids, payload)
	rep.Persisted = persisted
	if err != nil {
		rep.Err = err
		f.log.Errorw("persisting notifications failed", "event_type", ev.Kind, "recipients", len(ids), "tokens", len(tokens), "error", err)
	}

	rep.State = StateDone
	f.log.Infow("fan-out complete",
		"event_type", ev.Kind,
		"recipients", rep.Recipients,
		"tokens", rep.Tokens,
		"success", rep.Success,
		"failure", rep.Failure,
		"invalid", rep.Invalid,
		"persisted", rep.Persisted,
		"degraded", rep.Degraded)
	return rep
}

// cleanAsync detaches cleanup from the fan-out context so it survives the
// caller's deadline.
func (f *Fanout) cleanAsync(tokens []string) {
	f.cleanups.Add(1)
	go func() {
		defer f.cleanups.Done()
		defer func() {
			if r := recover(); r != nil {
				f.log.Errorw("token cleanup panicked", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), f.cleanTimeout)
		defer cancel()
		f.cleaner.Clean(ctx, tokens)
	}()
}

// Wait blocks until in-flight token cleanups finish.
func (f *Fanout) Wait() {
	f.cleanups.Wait()
}

// collect flattens tokens of push-enabled recipients, deduplicated, and the
// ids of every recipient.
func collect(targets []rdomain.Target) (tokens, ids []string) {
	seen := make(map[string]struct{})
	ids = make([]string, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.Ref().ID)
		if !t.PushEnabled() {
			continue
		}
		for _, tok := range rdomain.Tokens(t) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens, ids
}

func toNotificationData(p domain.Payload) fcm.NotificationData {
	return fcm.NotificationData{
		Title:       p.Title,
		Body:        p.Body,
		ImageURL:    p.Data.ImageURL,
		Data:        p.StringData(),
		ClickAction: p.Data.URL,
		Priority:    string(p.Data.Priority),
	}
}
