package adapters

import (
	"errors"
	"remo-humidifier/application"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	MQTTDefaultConnectTimeout = 30 * time.Second
	MQTTDefaultPublishTimeout = 5 * time.Second
	MQTTDefaultTopic          = "remo-humidifier"
	MQTTDefaultClientID       = "remo-humidifier"

	mqttDisconnectQuiesceMs = 250
)

var (
	ErrMQTTNotConnected   = errors.New("not connected")
	ErrMQTTConnectTimeout = errors.New("connect timeout")
	ErrMQTTPublishTimeout = errors.New("publish timeout")
)

type MQTTClientParams struct {
	ClientID string
	Username string
	Password string
	MQTTUrl  string

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	// for testing
	NewClientFunc func(options *mqtt.ClientOptions) mqtt.Client

	Log zerolog.Logger
}

func (m *MQTTClientParams) EnsureDefaults() {
	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = MQTTDefaultConnectTimeout
	}
	if m.PublishTimeout == 0 {
		m.PublishTimeout = MQTTDefaultPublishTimeout
	}
	if m.ClientID == "" {
		m.ClientID = MQTTDefaultClientID
	}
	if m.NewClientFunc == nil {
		m.NewClientFunc = mqtt.NewClient
	}
}

// MQTTClient publishes controller snapshots. paho reconnects on its own once the first
// connect succeeded; connected mirrors its callbacks.
type MQTTClient struct {
	params MQTTClientParams

	client mqtt.Client

	connected         atomic.Bool
	msgCount          atomic.Uint64
	lastTimePublished atomic.Pointer[time.Time]

	log zerolog.Logger
}

func NewMQTTClient(params MQTTClientParams) *MQTTClient {
	params.EnsureDefaults()

	m := &MQTTClient{params: params, log: params.Log}
	m.client = m.newMqttClient()

	t := time.Unix(0, 0)
	m.lastTimePublished.Store(&t)

	return m
}

func (m *MQTTClient) Connect() error {
	if m.connected.Load() {
		return nil
	}

	token := m.client.Connect()
	if err := waitToken(token, m.params.ConnectTimeout, ErrMQTTConnectTimeout); err != nil {
		return err
	}

	m.connected.Store(true)
	return nil
}

func (m *MQTTClient) IsConnected() bool {
	return m.connected.Load()
}

func (m *MQTTClient) Status() application.MQTTStatus {
	return application.MQTTStatus{
		MessageCount:      m.msgCount.Load(),
		LastTimePublished: *m.lastTimePublished.Load(),
		Connected:         m.IsConnected(),
	}
}

func (m *MQTTClient) Publish(topic string, qos byte, retained bool, msg any) error {
	if !m.IsConnected() {
		return ErrMQTTNotConnected
	}

	token := m.client.Publish(topic, qos, retained, msg)
	if err := waitToken(token, m.params.PublishTimeout, ErrMQTTPublishTimeout); err != nil {
		return err
	}

	t := time.Now()
	m.lastTimePublished.Store(&t)
	m.msgCount.Add(1)
	return nil
}

func (m *MQTTClient) Close() {
	if m.connected.Swap(false) {
		m.client.Disconnect(mqttDisconnectQuiesceMs)
	}
}

func (m *MQTTClient) OnConnect(client mqtt.Client) {
	m.log.Info().Str("broker", m.params.MQTTUrl).Msg("connected")
	m.connected.Store(true)
}

func (m *MQTTClient) OnConnectionLost(client mqtt.Client, err error) {
	m.log.Warn().Err(err).Msg("connection lost")
	m.connected.Store(false)
}

func (m *MQTTClient) newMqttClient() mqtt.Client {
	opts := mqtt.NewClientOptions()

	opts.AddBroker(m.params.MQTTUrl)
	opts.SetClientID(m.params.ClientID)
	opts.SetUsername(m.params.Username)
	opts.SetPassword(m.params.Password)
	opts.SetAutoReconnect(true)

	opts.OnConnect = m.OnConnect
	opts.OnConnectionLost = m.OnConnectionLost

	return m.params.NewClientFunc(opts)
}

func waitToken(token mqtt.Token, timeout time.Duration, timeoutErr error) error {
	tc := time.NewTimer(timeout)
	defer tc.Stop()

	select {
	case <-tc.C:
		return timeoutErr
	case <-token.Done():
		return token.Error()
	}
}

var _ application.MQTTClient = &MQTTClient{}
