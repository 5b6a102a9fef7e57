package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type StatePublisher interface {
	PublishState(ctx context.Context, snapshot Snapshot) error
}

type mqttStatePublisher struct {
	client MQTTClient
	topic  string
}

// NewMQTTStatePublisher publishes snapshots as retained JSON on "<topic>/state".
func NewMQTTStatePublisher(client MQTTClient, topic string) (StatePublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("MQTTClient is nil")
	}
	topic = strings.TrimSuffix(topic, "/")
	if topic == "" {
		return nil, fmt.Errorf("topic is empty")
	}
	return &mqttStatePublisher{client: client, topic: topic + "/state"}, nil
}

func (p *mqttStatePublisher) PublishState(_ context.Context, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return p.client.Publish(p.topic, 1, true, payload)
}
