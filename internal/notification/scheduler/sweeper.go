package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper periodically deletes notification records past expires_at.
type ExpirySweeper struct {
	repo     ExpiredDeleter
	interval time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool
}

func NewExpirySweeper(repo ExpiredDeleter, interval time.Duration, log *zap.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpirySweeper{
		repo:     repo,
		interval: interval,
		log:      log.Sugar().Named("expiry_sweeper"),
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until Stop.
func (s *ExpirySweeper) Start() {
	s.log.Infow("starting expiry sweeper", "interval", s.interval)

	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				s.log.Info("expiry sweeper stopped")
				return
			}
		}
	}()
}

// Stop signals the loop and waits for the running sweep to finish.
func (s *ExpirySweeper) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.Errorw("expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Infow("expired notifications removed", "count", n)
	}
}
