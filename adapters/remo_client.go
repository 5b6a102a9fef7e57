package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"remo-humidifier/application"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	RemoDefaultAPIURL  = "https://api.nature.global/1/"
	RemoDefaultTimeout = 30 * time.Second

	remoHumiditySensor = "hu"
	maxErrorBodyBytes  = 4096
)

// APIError describes a non-2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

type RemoDevice struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	NewestEvents map[string]RemoSensorValue `json:"newest_events"`
}

type RemoSensorValue struct {
	Val       *float64  `json:"val"`
	CreatedAt time.Time `json:"created_at"`
}

type RemoClientParams struct {
	AccessToken string
	APIURL      string
	Timeout     time.Duration

	HTTPClient *http.Client

	Log zerolog.Logger
}

func (p *RemoClientParams) EnsureDefaults() {
	if p.APIURL == "" {
		p.APIURL = RemoDefaultAPIURL
	}
	if p.Timeout == 0 {
		p.Timeout = RemoDefaultTimeout
	}
	if p.HTTPClient == nil {
		p.HTTPClient = &http.Client{Timeout: p.Timeout}
	}
}

type RemoClient struct {
	params  RemoClientParams
	baseURL *url.URL

	log zerolog.Logger
}

func NewRemoClient(params RemoClientParams) (*RemoClient, error) {
	params.EnsureDefaults()

	baseURL, err := url.Parse(params.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remo api url: %w", err)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	return &RemoClient{params: params, baseURL: baseURL, log: params.Log}, nil
}

// Humidity returns the humidity reported by the first device.
func (r *RemoClient) Humidity(ctx context.Context) (application.DeviceReading, error) {
	if isPlaceholder(r.params.AccessToken, remoPlaceholderTokens) {
		return application.DeviceReading{}, fmt.Errorf("%w: nature remo access token", application.ErrConfigMissing)
	}

	var devices []RemoDevice
	if err := r.do(ctx, http.MethodGet, "devices", &devices); err != nil {
		return application.DeviceReading{}, fmt.Errorf("%w: get devices: %w", application.ErrReadFailure, err)
	}

	if len(devices) == 0 {
		return application.DeviceReading{}, fmt.Errorf("%w: device list is empty", application.ErrNoHumidity)
	}
	hu, ok := devices[0].NewestEvents[remoHumiditySensor]
	if !ok || hu.Val == nil {
		return application.DeviceReading{}, fmt.Errorf("%w: device %s", application.ErrNoHumidity, devices[0].ID)
	}

	return application.DeviceReading{DeviceID: devices[0].ID, Humidity: *hu.Val}, nil
}

// SendSignal triggers a signal. Nothing is sent when the token or signal id is missing.
func (r *RemoClient) SendSignal(ctx context.Context, target application.SignalTarget) error {
	if isPlaceholder(r.params.AccessToken, remoPlaceholderTokens) {
		return fmt.Errorf("%w: nature remo access token", application.ErrConfigMissing)
	}
	if isPlaceholder(target.ID, remoPlaceholderSignalIDs) {
		return fmt.Errorf("%w: %s signal id", application.ErrConfigMissing, target.Name)
	}

	path := "signals/" + target.ID + "/send"
	if err := r.do(ctx, http.MethodPost, path, nil); err != nil {
		return fmt.Errorf("%w: %s: %w", application.ErrSendFailure, target.Name, err)
	}
	return nil
}

func (r *RemoClient) do(ctx context.Context, method, path string, out any) error {
	u := r.baseURL.ResolveReference(&url.URL{Path: path})

	var body io.Reader
	if method == http.MethodPost {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.params.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := r.params.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		apiErr := &APIError{Op: method + " " + path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}

		ev := r.log.Error().Int("status", resp.StatusCode).Str("body", apiErr.Body).Str("op", apiErr.Op)
		if resp.StatusCode == http.StatusUnauthorized {
			ev.Msg("nature remo access token is invalid or expired")
		} else {
			ev.Msg("nature remo request failed")
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ application.HubClient = &RemoClient{}
