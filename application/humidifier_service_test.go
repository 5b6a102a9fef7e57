package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, params HumidifierServiceParams) HumidifierService {
	t.Helper()

	service, err := NewHumidifierService(params)
	require.NoError(t, err)
	return service
}

func TestNewHumidifierService_NilController(t *testing.T) {
	_, err := NewHumidifierService(HumidifierServiceParams{})
	require.Error(t, err)
}

func TestHumidifierService_RunCycle_PublishesState(t *testing.T) {
	hub := &MockHubClient{}
	reader := &MockThresholdReader{}
	publisher := &MockStatePublisher{}

	service := newTestService(t, HumidifierServiceParams{
		Controller:     newTestController(t, hub, reader),
		StatePublisher: publisher,
	})

	reader.On("ReadThresholds", mock.Anything).Return(testAuto, nil).Once()
	hub.On("Humidity", mock.Anything).Return(DeviceReading{DeviceID: "remo", Humidity: 30}, nil).Once()
	hub.On("SendSignal", mock.Anything, mock.Anything).Return(nil).Twice()
	publisher.On("PublishState", mock.Anything, mock.MatchedBy(func(s Snapshot) bool {
		return s.Power == PowerOn && s.Polling && s.Cycles == 1 && s.LastCycle != nil
	})).Return(nil).Once()

	res, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionTurnOn, res.Action)

	snapshot := service.Snapshot()
	assert.True(t, snapshot.Polling)
	assert.Equal(t, PowerOn, snapshot.Power)
	assert.False(t, snapshot.At.IsZero())

	publisher.AssertExpectations(t)
}

func TestHumidifierService_RunCycle_PublishFailureIgnored(t *testing.T) {
	hub := &MockHubClient{}
	reader := &MockThresholdReader{}
	publisher := &MockStatePublisher{}

	service := newTestService(t, HumidifierServiceParams{
		Controller:     newTestController(t, hub, reader),
		StatePublisher: publisher,
	})

	reader.On("ReadThresholds", mock.Anything).Return(testAuto, nil).Once()
	hub.On("Humidity", mock.Anything).Return(DeviceReading{Humidity: 50}, nil).Once()
	publisher.On("PublishState", mock.Anything, mock.Anything).Return(fmt.Errorf("broker down")).Once()

	_, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestHumidifierService_RunCycle_FailedCyclePublished(t *testing.T) {
	hub := &MockHubClient{}
	reader := &MockThresholdReader{}
	publisher := &MockStatePublisher{}

	service := newTestService(t, HumidifierServiceParams{
		Controller:     newTestController(t, hub, reader),
		StatePublisher: publisher,
	})

	reader.On("ReadThresholds", mock.Anything).Return(RawThresholds{}, ErrNoData).Once()
	publisher.On("PublishState", mock.Anything, mock.MatchedBy(func(s Snapshot) bool {
		return s.FailedCycles == 1
	})).Return(nil).Once()

	_, err := service.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
	assert.True(t, service.Snapshot().Polling)
	publisher.AssertExpectations(t)
}

func TestHumidifierService_RunCycle_ModeOffStopsPolling(t *testing.T) {
	hub := &MockHubClient{}
	reader := &MockThresholdReader{}

	service := newTestService(t, HumidifierServiceParams{
		Controller: newTestController(t, hub, reader),
	})

	reader.On("ReadThresholds", mock.Anything).Return(testOff, nil).Once()
	hub.On("Humidity", mock.Anything).Return(DeviceReading{Humidity: 50}, nil).Once()

	res, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, res.StopPolling)
	assert.False(t, service.Snapshot().Polling)
}

func TestHumidifierService_Run_ModeOffStopsScheduleButKeepsRunning(t *testing.T) {
	hub := &MockHubClient{}
	reader := &MockThresholdReader{}
	ticker := newFakeTicker()

	service := newTestService(t, HumidifierServiceParams{
		Controller: newTestController(t, hub, reader),
		NewTicker:  ticker.New,
	})

	reader.On("ReadThresholds", mock.Anything).Return(testAuto, nil).Once()
	reader.On("ReadThresholds", mock.Anything).Return(testOff, nil).Once()
	hub.On("Humidity", mock.Anything).Return(DeviceReading{Humidity: 35}, nil).Twice()
	hub.On("SendSignal", mock.Anything, mock.Anything).Return(nil).Times(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	// first cycle turns on, the tick cycle sees MODE=OFF
	ticker.c <- time.Now()

	require.Eventually(t, func() bool {
		return !service.Snapshot().Polling
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, PowerOff, service.Snapshot().Power)
	assert.Equal(t, uint64(2), service.Snapshot().Cycles)

	select {
	case <-done:
		t.Fatal("service returned before context was cancelled")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}

	hub.AssertExpectations(t)
	reader.AssertExpectations(t)
}

func TestHumidifierService_Run_MQTTConnectRetried(t *testing.T) {
	hub := &MockHubClient{}
	reader := &MockThresholdReader{}
	mqttClient := &MockMQTTClient{}

	service := newTestService(t, HumidifierServiceParams{
		Controller:            newTestController(t, hub, reader),
		MQTTClient:            mqttClient,
		MQTTReconnectInterval: 5 * time.Millisecond,
		NewTicker:             newFakeTicker().New,
	})

	var connects atomic.Int32
	countConnect := func(mock.Arguments) { connects.Add(1) }
	mqttClient.On("Connect").Run(countConnect).Return(fmt.Errorf("connection refused")).Twice()
	mqttClient.On("Connect").Run(countConnect).Return(nil).Once()
	mqttClient.On("Status").Return(MQTTStatus{}).Maybe()
	reader.On("ReadThresholds", mock.Anything).Return(testAuto, nil).Once()
	hub.On("Humidity", mock.Anything).Return(DeviceReading{Humidity: 50}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return connects.Load() == 3
	}, time.Second, 5*time.Millisecond)

	// no further attempts once connected
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), connects.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}

	mqttClient.AssertExpectations(t)
}

func TestHumidifierService_Run_MQTTConnectDoesNotDelayFirstCycle(t *testing.T) {
	hub := &MockHubClient{}
	reader := &MockThresholdReader{}
	mqttClient := &MockMQTTClient{}

	service := newTestService(t, HumidifierServiceParams{
		Controller: newTestController(t, hub, reader),
		MQTTClient: mqttClient,
		NewTicker:  newFakeTicker().New,
	})

	release := make(chan struct{})
	mqttClient.On("Connect").Run(func(mock.Arguments) {
		<-release
	}).Return(fmt.Errorf("connect timeout")).Maybe()
	reader.On("ReadThresholds", mock.Anything).Return(testAuto, nil).Once()
	hub.On("Humidity", mock.Anything).Return(DeviceReading{Humidity: 50}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return service.Snapshot().Cycles == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}
