package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// RabbitMQConfig describes the broker's MQTT endpoint.
type RabbitMQConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	ClientID   string
	MaxRetries int           // connection attempts after the first, default 4
	MaxElapsed time.Duration // give up after this long, default 10s
}

// Broker returns the tcp:// address of the endpoint.
func (c RabbitMQConfig) Broker() string { return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port) }

// NewRabbitMQConn connects with exponential backoff and disconnects when ctx
// is cancelled.
func NewRabbitMQConn(ctx context.Context, cfg RabbitMQConfig, log *zap.SugaredLogger) (mqtt.Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("mqtt: connection lost: %v", err)
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warnf("mqtt: connect to %s failed: %v", cfg.Broker(), token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.MaxRetries)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}
	log.Infof("mqtt: connected to %s as %s", cfg.Broker(), cfg.ClientID)

	go func() {
		<-ctx.Done()
		CloseRabbitMQConn(client, log)
	}()
	return client, nil
}

// CloseRabbitMQConn disconnects a connected client, waiting up to 250ms.
func CloseRabbitMQConn(client mqtt.Client, log *zap.SugaredLogger) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		if log != nil {
			log.Infof("mqtt: connection closed")
		}
	}
}
