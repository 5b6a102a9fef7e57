package application

import (
	"fmt"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeAuto Mode = "AUTO"
	ModeOff  Mode = "OFF"
)

// ParseMode maps a MODE cell to a Mode. Only "OFF" disables automatic control.
func ParseMode(cell string) Mode {
	if strings.TrimSpace(cell) == string(ModeOff) {
		return ModeOff
	}
	return ModeAuto
}

// RawThresholds holds the threshold cells exactly as the spreadsheet returned them.
type RawThresholds struct {
	Low  string
	High string
	Mode string
}

type ThresholdConfig struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Mode Mode    `json:"mode"`
}

// ParseThresholds coerces raw cells into a ThresholdConfig. LOW and HIGH may carry a trailing "%".
// LOW > HIGH is accepted as is.
func ParseThresholds(raw RawThresholds) (ThresholdConfig, error) {
	low, err := parsePercent(raw.Low)
	if err != nil {
		return ThresholdConfig{}, fmt.Errorf("%w: LOW %q", ErrInvalidThreshold, raw.Low)
	}
	high, err := parsePercent(raw.High)
	if err != nil {
		return ThresholdConfig{}, fmt.Errorf("%w: HIGH %q", ErrInvalidThreshold, raw.High)
	}

	return ThresholdConfig{
		Low:  low,
		High: high,
		Mode: ParseMode(raw.Mode),
	}, nil
}

func parsePercent(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	return strconv.ParseFloat(s, 64)
}
