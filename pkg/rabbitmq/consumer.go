package rabbitmq

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Handler processes one message received on topic.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes to a topic and hands messages to a Handler.
type IConsumer interface {
	ConsumeMessage(ctx context.Context) error
	SetHandler(handler Handler)
}

// Consumer holds the client and topic it subscribes to.
type Consumer struct {
	client  mqtt.Client
	topic   string
	handler Handler
	log     *zap.SugaredLogger
}

func NewConsumer(client mqtt.Client, topic string, handler Handler, log *zap.SugaredLogger) *Consumer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Consumer{client: client, topic: topic, handler: handler, log: log}
}

func (c *Consumer) SetHandler(handler Handler) { c.handler = handler }

// qosFor gives requests at-least-once delivery; everything else is best effort.
func qosFor(topic string) byte {
	if strings.HasPrefix(strings.TrimSpace(topic), "legray/request") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes and blocks until ctx is cancelled, then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) error {
	token := c.client.Subscribe(c.topic, qosFor(c.topic), func(_ mqtt.Client, m mqtt.Message) {
		if c.handler == nil {
			c.log.Warnf("mqtt: no handler for %s", c.topic)
			return
		}
		if err := c.handler(m.Topic(), m); err != nil {
			c.log.Errorf("mqtt: handling message on %s: %v", m.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	c.log.Infof("mqtt: subscribed to %s", c.topic)

	<-ctx.Done()
	c.client.Unsubscribe(c.topic).Wait()
	return nil
}
