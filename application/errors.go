package application

import "errors"

var (
	// ErrConfigMissing is returned when a required identifier or credential is empty or still a placeholder.
	ErrConfigMissing = errors.New("configuration missing")
	// ErrAuthFailure is returned when the interactive consent flow fails. It halts startup.
	ErrAuthFailure = errors.New("authorization failed")
	// ErrReadFailure wraps spreadsheet and device read errors. The current cycle is skipped.
	ErrReadFailure = errors.New("read failed")
	// ErrNoData is returned when the spreadsheet range is empty or lacks a threshold cell.
	ErrNoData = errors.New("no data")
	// ErrNoHumidity is returned when the device list lacks the humidity reading.
	ErrNoHumidity = errors.New("no humidity reading")
	// ErrInvalidThreshold is returned when a LOW/HIGH cell is not a number.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrSendFailure wraps signal send errors.
	ErrSendFailure = errors.New("signal send failed")
	// ErrCycleInProgress is returned when a cycle is requested while another one is running.
	ErrCycleInProgress = errors.New("cycle already in progress")
)
