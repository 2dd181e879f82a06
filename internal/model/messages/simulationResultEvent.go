package messages

import "time"

// SimulationResultEvent closes a run on the broker, successful or not.
type SimulationResultEvent struct {
	RunID     string    `json:"run_id"`
	RequestID string    `json:"request_id,omitempty"`
	FieldID   string    `json:"field_id"`
	Status    string    `json:"status"` // "OK" | "FAIL"
	Cuts      int       `json:"cuts"`
	Days      int       `json:"days"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
