package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

type PowerState int

const (
	PowerOff PowerState = iota
	PowerOn
)

func (p PowerState) String() string {
	if p == PowerOn {
		return "ON"
	}
	return "OFF"
}

func (p PowerState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type Action string

const (
	ActionNone    Action = "none"
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"
)

type Decision struct {
	Action      Action
	Next        PowerState
	StopPolling bool
}

// Decide evaluates one step of the hysteresis latch. Both bounds are inclusive.
func Decide(cfg ThresholdConfig, reading DeviceReading, current PowerState) Decision {
	if cfg.Mode == ModeOff {
		if current == PowerOn {
			return Decision{Action: ActionTurnOff, Next: PowerOff, StopPolling: true}
		}
		return Decision{Action: ActionNone, Next: current, StopPolling: true}
	}

	switch {
	case reading.Humidity <= cfg.Low && current == PowerOff:
		return Decision{Action: ActionTurnOn, Next: PowerOn}
	case reading.Humidity >= cfg.High && current == PowerOn:
		return Decision{Action: ActionTurnOff, Next: PowerOff}
	}
	return Decision{Action: ActionNone, Next: current}
}

type SignalFailure struct {
	Signal string `json:"signal"`
	Error  string `json:"error"`
}

type CycleResult struct {
	ID           string           `json:"id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Thresholds   *ThresholdConfig `json:"thresholds,omitempty"`
	Reading      *DeviceReading   `json:"reading,omitempty"`
	PowerBefore  PowerState       `json:"power_before"`
	PowerAfter   PowerState       `json:"power_after"`
	Action       Action           `json:"action"`
	StopPolling  bool             `json:"stop_polling"`
	SendFailures []SignalFailure  `json:"send_failures,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type ControllerParams struct {
	HubClient       HubClient
	ThresholdReader ThresholdReader

	Speaker    SignalTarget
	Humidifier SignalTarget

	// for testing
	Now        func() time.Time
	NewCycleID func() string

	Log zerolog.Logger
}

func (p *ControllerParams) EnsureDefaults() {
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.NewCycleID == nil {
		p.NewCycleID = uuid.NewString
	}
}

// Controller owns the PowerState latch and runs control cycles one at a time.
type Controller struct {
	params ControllerParams

	cycleMu sync.Mutex

	mu           sync.RWMutex
	power        PowerState
	cycles       uint64
	failedCycles uint64
	last         *CycleResult

	log zerolog.Logger
}

func NewController(params ControllerParams) (*Controller, error) {
	if params.HubClient == nil {
		return nil, fmt.Errorf("HubClient is nil")
	}
	if params.ThresholdReader == nil {
		return nil, fmt.Errorf("ThresholdReader is nil")
	}
	params.EnsureDefaults()

	return &Controller{params: params, power: PowerOff, log: params.Log}, nil
}

func (c *Controller) Power() PowerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.power
}

// RunCycle reads thresholds and humidity, applies Decide, and sends the signal pair when the latch flips.
// A read failure aborts the cycle without touching the latch. It returns ErrCycleInProgress without
// doing anything if another cycle is still running.
func (c *Controller) RunCycle(ctx context.Context) (CycleResult, error) {
	if !c.cycleMu.TryLock() {
		return CycleResult{}, ErrCycleInProgress
	}
	defer c.cycleMu.Unlock()

	res := CycleResult{
		ID:          c.params.NewCycleID(),
		StartedAt:   c.params.Now(),
		PowerBefore: c.Power(),
		Action:      ActionNone,
	}
	log := c.log.With().Str("cycle_id", res.ID).Logger()

	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = c.runCycle(ctx, &res, log)
	})
	if recovered := pc.Recovered(); recovered != nil {
		err = recovered.AsError()
	}

	res.FinishedAt = c.params.Now()
	res.PowerAfter = c.Power()
	if err != nil {
		res.Error = err.Error()
		log.Error().Err(err).Msg("cycle failed")
	}
	c.record(res)

	return res, err
}

func (c *Controller) runCycle(ctx context.Context, res *CycleResult, log zerolog.Logger) error {
	raw, err := c.params.ThresholdReader.ReadThresholds(ctx)
	if err != nil {
		return fmt.Errorf("read thresholds: %w", err)
	}

	cfg, err := ParseThresholds(raw)
	if err != nil {
		return err
	}
	res.Thresholds = &cfg

	if cfg.Low > cfg.High {
		log.Warn().Float64("low", cfg.Low).Float64("high", cfg.High).Msg("LOW is above HIGH")
	}

	reading, err := c.params.HubClient.Humidity(ctx)
	if err != nil {
		return fmt.Errorf("read humidity: %w", err)
	}
	res.Reading = &reading

	current := c.Power()
	log.Info().
		Float64("humidity", reading.Humidity).
		Float64("low", cfg.Low).
		Float64("high", cfg.High).
		Str("mode", string(cfg.Mode)).
		Stringer("power", current).
		Msg("cycle inputs")

	decision := Decide(cfg, reading, current)
	res.Action = decision.Action
	res.StopPolling = decision.StopPolling

	if decision.StopPolling {
		log.Info().Msg("automatic mode is OFF")
	}

	if decision.Action == ActionNone {
		return nil
	}

	switch decision.Action {
	case ActionTurnOn:
		log.Info().Msg("humidity at or below LOW, turning on")
	case ActionTurnOff:
		if cfg.Mode == ModeOff {
			log.Info().Msg("mode is OFF, turning off")
		} else {
			log.Info().Msg("humidity at or above HIGH, turning off")
		}
	}

	res.SendFailures = c.sendPair(ctx, log)

	// The latch follows the command even when a send failed, so a failed pair is not resent next cycle.
	c.setPower(decision.Next)
	return nil
}

func (c *Controller) sendPair(ctx context.Context, log zerolog.Logger) []SignalFailure {
	var failures []SignalFailure
	for _, target := range []SignalTarget{c.params.Speaker, c.params.Humidifier} {
		if err := c.params.HubClient.SendSignal(ctx, target); err != nil {
			log.Error().Err(err).Str("signal", target.Name).Msg("signal send failed")
			failures = append(failures, SignalFailure{Signal: target.Name, Error: err.Error()})
			continue
		}
		log.Info().Str("signal", target.Name).Str("signal_id", target.ID).Msg("signal sent")
	}
	return failures
}

func (c *Controller) setPower(p PowerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.power = p
}

func (c *Controller) record(res CycleResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles++
	if res.Error != "" {
		c.failedCycles++
	}
	c.last = &res
}

type ControllerStats struct {
	Power        PowerState   `json:"power"`
	Cycles       uint64       `json:"cycles"`
	FailedCycles uint64       `json:"failed_cycles"`
	LastCycle    *CycleResult `json:"last_cycle,omitempty"`
}

func (c *Controller) Stats() ControllerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := ControllerStats{Power: c.power, Cycles: c.cycles, FailedCycles: c.failedCycles}
	if c.last != nil {
		last := *c.last
		stats.LastCycle = &last
	}
	return stats
}
