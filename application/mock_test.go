package application

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockHubClient struct {
	mock.Mock
}

func (m *MockHubClient) Humidity(ctx context.Context) (DeviceReading, error) {
	args := m.Called(ctx)
	return args.Get(0).(DeviceReading), args.Error(1)
}

func (m *MockHubClient) SendSignal(ctx context.Context, target SignalTarget) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

var _ HubClient = &MockHubClient{}

type MockThresholdReader struct {
	mock.Mock
}

func (m *MockThresholdReader) ReadThresholds(ctx context.Context) (RawThresholds, error) {
	args := m.Called(ctx)
	return args.Get(0).(RawThresholds), args.Error(1)
}

var _ ThresholdReader = &MockThresholdReader{}

type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, msg any) error {
	args := m.Called(topic, qos, retained, msg)
	return args.Error(0)
}

func (m *MockMQTTClient) Connect() error {
	return m.Called().Error(0)
}

func (m *MockMQTTClient) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *MockMQTTClient) Status() MQTTStatus {
	return m.Called().Get(0).(MQTTStatus)
}

var _ MQTTClient = &MockMQTTClient{}

type MockStatePublisher struct {
	mock.Mock
}

func (m *MockStatePublisher) PublishState(ctx context.Context, snapshot Snapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

var _ StatePublisher = &MockStatePublisher{}
