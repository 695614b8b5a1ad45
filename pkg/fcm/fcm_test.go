package fcm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProviderInitializesOnce(t *testing.T) {
	var inits atomic.Int32
	p := newProvider(func(context.Context) (Sender, error) {
		inits.Add(1)
		return &fakeSender{}, nil
	}, time.Minute, zap.NewNop())
	assert.Equal(t, Uninitialized, p.State())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.Sender(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inits.Load())
	assert.Equal(t, Ready, p.State())
}

func TestProviderCachesFailureUntilRetryWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var inits int
	fail := true
	p := newProvider(func(context.Context) (Sender, error) {
		inits++
		if fail {
			return nil, ErrMissingCredentials
		}
		return &fakeSender{}, nil
	}, 5*time.Minute, zap.NewNop())
	p.now = func() time.Time { return now }

	_, err := p.Sender(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, Unavailable, p.State())

	now = now.Add(time.Minute)
	_, err = p.Sender(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, inits, "retry must wait for the window")

	fail = false
	now = now.Add(5 * time.Minute)
	s, err := p.Sender(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, 2, inits)
	assert.Equal(t, Ready, p.State())
}

func TestNewProviderWithoutCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	p := NewProvider("", time.Minute, zap.NewNop())

	_, err := p.Sender(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), ErrMissingCredentials.Error())
}
