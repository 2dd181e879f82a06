package simulation

import (
	"context"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/legray/internal/model/messages"
	"github.com/LeonardoBeccarini/legray/pkg/dedup"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

// RequestHandler consumes SimulationRequests from the broker. Redelivered
// requests (same request_id, or same payload when it has none) are dropped.
func (r *Runner) RequestHandler(ctx context.Context, seen *dedup.Deduper) rabbitmq.Handler {
	return func(topic string, msg mqtt.Message) error {
		payload := msg.Payload()
		var req messages.SimulationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			r.log.Warnf("simulation: invalid JSON on %s: %v", topic, err)
			return nil
		}
		if seen != nil {
			var fresh bool
			if req.RequestID != "" {
				fresh = seen.ShouldProcess("req:" + req.RequestID)
			} else {
				fresh = seen.ShouldProcessPayload(payload)
			}
			if !fresh {
				r.log.Debugf("simulation: duplicate request on %s dropped", topic)
				return nil
			}
		}
		// failures are logged and published as FAIL results by Simulate
		_, _ = r.Simulate(ctx, req)
		return nil
	}
}
