package messages

import "time"

// YieldEvent is published by the simulation service once per evaluated cut.
type YieldEvent struct {
	RunID     string    `json:"run_id"`
	FieldID   string    `json:"field_id"`
	Soil      string    `json:"soil"`
	Date      string    `json:"date"`
	Yield     float64   `json:"yield"`
	CN        int       `json:"cn"`
	SumETA    float64   `json:"sum_eta_mm"`
	Days      int       `json:"window_days"`
	Timestamp time.Time `json:"timestamp"`
}
