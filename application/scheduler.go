package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const SchedulerDefaultInterval = 5 * time.Minute

type SchedulerParams struct {
	Interval time.Duration
	Cycle    func(ctx context.Context)

	// for testing
	NewTicker func(d time.Duration) (<-chan time.Time, func())

	Log zerolog.Logger
}

func (p *SchedulerParams) EnsureDefaults() {
	if p.Interval == 0 {
		p.Interval = SchedulerDefaultInterval
	}
	if p.NewTicker == nil {
		p.NewTicker = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
}

// Scheduler fires Cycle once immediately and then on every tick until Stop is called or the
// context ends. Cycles run on the Run goroutine, so ticks that arrive mid-cycle are dropped.
type Scheduler struct {
	params SchedulerParams

	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	stopped  atomic.Bool

	log zerolog.Logger
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Cycle == nil {
		return nil, fmt.Errorf("Cycle is nil")
	}
	if params.Interval < 0 {
		return nil, fmt.Errorf("interval must not be negative")
	}
	params.EnsureDefaults()

	return &Scheduler{params: params, stop: make(chan struct{}), log: params.Log}, nil
}

func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already running")
	}
	defer s.running.Store(false)

	if s.Stopped() {
		return nil
	}

	s.log.Info().Dur("interval", s.params.Interval).Msg("polling started")
	defer s.log.Info().Msg("polling stopped")

	tick, stopTicker := s.params.NewTicker(s.params.Interval)
	defer stopTicker()

	s.params.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-tick:
			s.params.Cycle(ctx)
		}
	}
}

// Stop ends polling. It is safe to call from inside Cycle and more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.stop)
	})
}

func (s *Scheduler) Stopped() bool {
	return s.stopped.Load()
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}
