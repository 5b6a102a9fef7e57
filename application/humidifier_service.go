package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	PublishReportInterval        = 30 * time.Second
	MQTTDefaultReconnectInterval = 15 * time.Second
)

type Snapshot struct {
	ControllerStats
	Polling bool      `json:"polling"`
	At      time.Time `json:"at"`
}

type HumidifierService interface {
	Run(ctx context.Context) error
	RunCycle(ctx context.Context) (CycleResult, error)
	Snapshot() Snapshot
}

type HumidifierServiceParams struct {
	Controller   *Controller
	PollInterval time.Duration

	// optional
	StatePublisher StatePublisher
	MQTTClient     MQTTClient

	// MQTTReconnectInterval is the wait between connect attempts until the first one succeeds.
	// paho reconnects on its own after that.
	MQTTReconnectInterval time.Duration

	// for testing
	NewTicker func(d time.Duration) (<-chan time.Time, func())

	Log zerolog.Logger
}

func (p *HumidifierServiceParams) EnsureDefaults() {
	if p.MQTTReconnectInterval == 0 {
		p.MQTTReconnectInterval = MQTTDefaultReconnectInterval
	}
}

type humidifierService struct {
	params    HumidifierServiceParams
	scheduler *Scheduler

	log zerolog.Logger
}

func NewHumidifierService(params HumidifierServiceParams) (HumidifierService, error) {
	if params.Controller == nil {
		return nil, fmt.Errorf("Controller is nil")
	}
	params.EnsureDefaults()

	s := &humidifierService{params: params, log: params.Log}

	scheduler, err := NewScheduler(SchedulerParams{
		Interval:  params.PollInterval,
		Cycle:     s.scheduledCycle,
		NewTicker: params.NewTicker,
		Log:       params.Log,
	})
	if err != nil {
		return nil, err
	}
	s.scheduler = scheduler

	return s, nil
}

func (s *humidifierService) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// control loop
	g.Go(func() error {
		if err := s.scheduler.Run(ctx); err != nil {
			return err
		}
		if s.scheduler.Stopped() {
			s.log.Warn().Msg("automatic mode is OFF, polling stopped until restart")
		}
		<-ctx.Done()
		return nil
	})

	// mqtt connect and publish reporter, runs beside the control loop
	if s.params.MQTTClient != nil {
		g.Go(func() error {
			if !s.connectMQTT(ctx) {
				return nil
			}
			s.reportPublishing(ctx)
			return nil
		})
	}

	return g.Wait()
}

// RunCycle runs one cycle outside the schedule. It shares the cycle guard with scheduled runs.
func (s *humidifierService) RunCycle(ctx context.Context) (CycleResult, error) {
	res, err := s.params.Controller.RunCycle(ctx)
	if errors.Is(err, ErrCycleInProgress) {
		return res, err
	}
	s.afterCycle(ctx, res)
	return res, err
}

func (s *humidifierService) Snapshot() Snapshot {
	return Snapshot{
		ControllerStats: s.params.Controller.Stats(),
		Polling:         !s.scheduler.Stopped(),
		At:              time.Now().UTC(),
	}
}

func (s *humidifierService) scheduledCycle(ctx context.Context) {
	res, err := s.params.Controller.RunCycle(ctx)
	if errors.Is(err, ErrCycleInProgress) {
		s.log.Warn().Msg("previous cycle still running, skipping")
		return
	}
	s.afterCycle(ctx, res)
}

func (s *humidifierService) afterCycle(ctx context.Context, res CycleResult) {
	if res.StopPolling {
		s.scheduler.Stop()
	}

	if s.params.StatePublisher == nil {
		return
	}
	if err := s.params.StatePublisher.PublishState(ctx, s.Snapshot()); err != nil {
		s.log.Warn().Err(err).Str("cycle_id", res.ID).Msg("failed to publish state")
	}
}

// connectMQTT retries until the first connect succeeds. It returns false if ctx ended first.
func (s *humidifierService) connectMQTT(ctx context.Context) bool {
	for attempt := 1; ; attempt++ {
		err := s.params.MQTTClient.Connect()
		if err == nil {
			s.log.Info().Int("attempt", attempt).Msg("mqtt connected, state publishing enabled")
			return true
		}
		s.log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("retry_in", s.params.MQTTReconnectInterval).
			Msg("mqtt connect failed, state publishing paused")

		t := time.NewTimer(s.params.MQTTReconnectInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

func (s *humidifierService) reportPublishing(ctx context.Context) {
	ticker := time.NewTicker(PublishReportInterval)
	defer ticker.Stop()

	lastStatus := s.params.MQTTClient.Status()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			newStatus := s.params.MQTTClient.Status()
			s.log.Info().
				Uint64("published", newStatus.MessageCount-lastStatus.MessageCount).
				Bool("is_connected", newStatus.Connected).
				Time("last_time_published", newStatus.LastTimePublished).
				Msg("publish report")
			lastStatus = newStatus
		}
	}
}
