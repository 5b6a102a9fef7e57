package application

import "context"

type DeviceReading struct {
	DeviceID string  `json:"device_id,omitempty"`
	Humidity float64 `json:"humidity"`
}

// SignalTarget is a pre-recorded remote button on the hub.
type SignalTarget struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type HubClient interface {
	Humidity(ctx context.Context) (DeviceReading, error)
	SendSignal(ctx context.Context, target SignalTarget) error
}
