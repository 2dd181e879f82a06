package rabbitmq

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads to MQTT topics.
type IPublisher interface {
	PublishToQos(topic string, qos byte, retained bool, payload []byte) error
	PublishJSON(topic string, v any) error
	Close()
}

// Publisher is an IPublisher over a shared MQTT client.
type Publisher struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
}

// NewPublisher publishes JSON at the given QoS; PublishToQos overrides it per call.
func NewPublisher(client mqtt.Client, qos byte) *Publisher {
	return &Publisher{client: client, qos: qos, timeout: 5 * time.Second}
}

func (p *Publisher) PublishToQos(topic string, qos byte, retained bool, payload []byte) error {
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("publish: empty topic")
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) PublishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("publish to %s: marshal: %w", topic, err)
	}
	return p.PublishToQos(topic, p.qos, false, b)
}

// Close disconnects the underlying client if it is still connected.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// Topic fills {field} and {run} placeholders of a topic template.
func Topic(tmpl, fieldID, runID string) string {
	return strings.NewReplacer("{field}", fieldID, "{run}", runID).Replace(tmpl)
}
