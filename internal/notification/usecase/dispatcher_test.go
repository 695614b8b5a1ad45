package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"newsroom-backend/internal/notification/domain"
	"newsroom-backend/pkg/fcm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type funcRunner func(ctx context.Context, ev domain.Event) Report

func (f funcRunner) Run(ctx context.Context, ev domain.Event) Report { return f(ctx, ev) }

func collectReports(d *Dispatcher) <-chan Report {
	ch := make(chan Report, 16)
	d.onDone = func(r Report) { ch <- r }
	return ch
}

func waitReport(t *testing.T, ch <-chan Report) Report {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fan-out")
		return Report{}
	}
}

func TestDispatcherRunsEventsWithDeadline(t *testing.T) {
	var hadDeadline bool
	var mu sync.Mutex
	d := NewDispatcher(funcRunner(func(ctx context.Context, ev domain.Event) Report {
		_, ok := ctx.Deadline()
		mu.Lock()
		hadDeadline = ok
		mu.Unlock()
		return Report{Event: ev.Kind, State: StateDone}
	}), 2, 4, time.Second, zap.NewNop())
	reports := collectReports(d)
	d.Start()
	defer d.Stop()

	require.True(t, d.Dispatch(breaking))
	r := waitReport(t, reports)
	assert.Equal(t, StateDone, r.State)
	mu.Lock()
	assert.True(t, hadDeadline)
	mu.Unlock()
}

func TestDispatcherSurvivesPanics(t *testing.T) {
	d := NewDispatcher(funcRunner(func(_ context.Context, ev domain.Event) Report {
		if ev.ID == "boom" {
			panic("bad event")
		}
		return Report{Event: ev.Kind, State: StateDone}
	}), 1, 4, time.Second, zap.NewNop())
	reports := collectReports(d)
	d.Start()
	defer d.Stop()

	require.True(t, d.Dispatch(domain.Event{Kind: domain.EventCustom, ID: "boom"}))
	require.True(t, d.Dispatch(breaking))

	first := waitReport(t, reports)
	assert.Empty(t, first.State, "panicked job reports nothing")
	second := waitReport(t, reports)
	assert.Equal(t, StateDone, second.State)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	d := NewDispatcher(funcRunner(func(context.Context, domain.Event) Report {
		started <- struct{}{}
		<-release
		return Report{}
	}), 1, 1, time.Second, zap.NewNop())
	d.Start()

	require.True(t, d.Dispatch(breaking))
	<-started
	assert.True(t, d.Dispatch(breaking), "fills the queue")
	assert.False(t, d.Dispatch(breaking), "queue full")

	close(release)
	d.Stop()
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	d := NewDispatcher(funcRunner(func(context.Context, domain.Event) Report { return Report{} }), 1, 1, time.Second, zap.NewNop())
	d.Start()
	d.Stop()
	d.Stop()

	assert.False(t, d.Dispatch(breaking))
}

func TestDispatcherStopDrainsQueueAndCleanups(t *testing.T) {
	h := newHarness(user("u1", []string{"dead"}, nil))
	h.gateway.result = func(tokens []string) fcm.Result {
		return fcm.Result{FailureCount: 1, InvalidTokens: tokens}
	}
	d := NewDispatcher(h.fanout, 1, 8, time.Second, zap.NewNop())
	d.Start()

	for i := 0; i < 3; i++ {
		require.True(t, d.Dispatch(breaking))
	}
	d.Stop()

	assert.Equal(t, 3, h.store.calls)
	h.cleaner.mu.Lock()
	defer h.cleaner.mu.Unlock()
	assert.Equal(t, []string{"dead", "dead", "dead"}, h.cleaner.tokens)
}

func TestDispatcherStopBeforeStartReportsQueuedEvents(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	var runs int
	d := NewDispatcher(funcRunner(func(context.Context, domain.Event) Report {
		runs++
		return Report{}
	}), 1, 4, time.Second, zap.New(core))

	require.True(t, d.Dispatch(breaking))
	require.True(t, d.Dispatch(domain.Event{Kind: domain.EventCustom, ID: "c1"}))
	d.Stop()

	assert.Zero(t, runs)
	dropped := logs.FilterMessage("dispatcher never started, dropping queued event").All()
	require.Len(t, dropped, 2)
	assert.Equal(t, "A", dropped[0].ContextMap()["id"])
	assert.Equal(t, "c1", dropped[1].ContextMap()["id"])

	d.Start()
	assert.False(t, d.Dispatch(breaking), "stopped dispatcher stays closed")
}
