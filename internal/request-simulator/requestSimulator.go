// Package request_simulator publishes simulation requests with generated
// weather and follows their results, to exercise a deployed simulation service.
package request_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/model"
	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/pkg/dedup"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

// Config fixes what every generated request asks for.
type Config struct {
	FieldID      string
	Soil         string
	Start        entities.Date
	Days         int
	RequestTopic string // template with {field}
}

// Stats counts requests and the results seen for them.
type Stats struct {
	Sent   int
	OK     int
	Failed int
}

type RequestSimulator struct {
	mu        sync.Mutex
	cfg       Config
	generator *WeatherGenerator
	publisher rabbitmq.IPublisher
	consumer  rabbitmq.IConsumer
	deduper   *dedup.Deduper
	log       *zap.SugaredLogger
	pending   map[string]time.Time // request id -> sent at
	stats     Stats
	seq       int
}

func NewRequestSimulator(cfg Config, consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher,
	gen *WeatherGenerator, log *zap.SugaredLogger) *RequestSimulator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.RequestTopic == "" {
		cfg.RequestTopic = "legray/request/{field}"
	}
	if cfg.Days <= 0 {
		cfg.Days = 365
	}
	return &RequestSimulator{
		cfg:       cfg,
		generator: gen,
		publisher: publisher,
		consumer:  consumer,
		deduper:   dedup.New(2*time.Minute, 10000),
		log:       log,
		pending:   make(map[string]time.Time),
	}
}

// Start follows results and publishes a request every interval until ctx ends.
func (s *RequestSimulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		s.consumer.SetHandler(s.handleMessage)
		go func() {
			if err := s.consumer.ConsumeMessage(ctx); err != nil {
				s.log.Errorf("request-sim: consume results: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			st := s.Stats()
			s.log.Infof("request-sim: sent=%d ok=%d failed=%d", st.Sent, st.OK, st.Failed)
			return
		case <-ticker.C:
			if err := s.PublishOnce(); err != nil {
				s.log.Errorf("request-sim: %v", err)
			}
		}
	}
}

// PublishOnce sends one request with a fresh weather series.
func (s *RequestSimulator) PublishOnce() error {
	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("%s-%d-%d", s.cfg.FieldID, time.Now().Unix(), s.seq)
	s.mu.Unlock()

	req := model.SimulationRequest{
		RequestID: id,
		FieldID:   s.cfg.FieldID,
		Soil:      s.cfg.Soil,
		Weather:   s.generator.Series(s.cfg.Start, s.cfg.Days),
	}
	topic := rabbitmq.Topic(s.cfg.RequestTopic, s.cfg.FieldID, "")

	// pending before publishing: the result may arrive before PublishJSON returns
	s.mu.Lock()
	s.pending[id] = time.Now()
	s.stats.Sent++
	s.mu.Unlock()

	if err := s.publisher.PublishJSON(topic, req); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.stats.Sent--
		s.mu.Unlock()
		return fmt.Errorf("publish request %s: %w", id, err)
	}
	s.log.Debugf("request-sim: sent %s on %s (%d days)", id, topic, s.cfg.Days)
	return nil
}

func (s *RequestSimulator) handleMessage(_ string, msg mqtt.Message) error {
	if !s.deduper.ShouldProcessPayload(msg.Payload()) {
		return nil
	}
	var evt model.SimulationResultEvent
	if err := json.Unmarshal(msg.Payload(), &evt); err != nil {
		return fmt.Errorf("invalid SimulationResultEvent: %w", err)
	}
	if evt.FieldID != s.cfg.FieldID {
		return nil
	}

	s.mu.Lock()
	sentAt, ok := s.pending[evt.RequestID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.pending, evt.RequestID)
	if evt.Status == model.StatusOK {
		s.stats.OK++
	} else {
		s.stats.Failed++
	}
	s.mu.Unlock()

	s.log.Infof("request-sim: %s %s run=%s cuts=%d days=%d after %s %s",
		evt.RequestID, evt.Status, evt.RunID, evt.Cuts, evt.Days, time.Since(sentAt).Truncate(time.Millisecond), evt.Reason)
	return nil
}

func (s *RequestSimulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
