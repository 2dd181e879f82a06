package persistence

import (
	"context"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/model/messages"
	"github.com/LeonardoBeccarini/legray/pkg/dedup"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

// YieldWriter is the part of Store the broker service needs.
type YieldWriter interface {
	WriteYieldEvents(ctx context.Context, evs ...messages.YieldEvent) error
}

// Service writes the yield events published on the broker.
type Service struct {
	consumer rabbitmq.IConsumer
	store    YieldWriter
	seen     *dedup.Deduper
	log      *zap.SugaredLogger
}

func NewService(consumer rabbitmq.IConsumer, store YieldWriter, seen *dedup.Deduper, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{consumer: consumer, store: store, seen: seen, log: log}
}

// Start consumes until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.consumer.SetHandler(s.handler(ctx))
	return s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handler(ctx context.Context) rabbitmq.Handler {
	return func(topic string, msg mqtt.Message) error {
		var ev messages.YieldEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			s.log.Warnf("persistence: invalid JSON on %s: %v", topic, err)
			return nil
		}
		if ev.FieldID == "" || ev.Date == "" {
			s.log.Warnf("persistence: incomplete yield event on %s", topic)
			return nil
		}
		key := ev.RunID + "|" + ev.FieldID + "|" + ev.Date
		if s.seen != nil && s.seen.Seen(key) {
			return nil
		}
		if err := s.store.WriteYieldEvents(ctx, ev); err != nil {
			s.log.Errorf("persistence: %v", err)
			return err
		}
		if s.seen != nil {
			s.seen.Mark(key)
		}
		s.log.Infof("persistence: wrote yield field=%s date=%s yield=%.4f cn=%d", ev.FieldID, ev.Date, ev.Yield, ev.CN)
		return nil
	}
}
