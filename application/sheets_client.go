package application

import "context"

// ThresholdReader fetches the raw LOW/HIGH/MODE cells. Coercion is left to ParseThresholds.
type ThresholdReader interface {
	ReadThresholds(ctx context.Context) (RawThresholds, error)
}
