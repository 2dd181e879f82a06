package messages

import "github.com/LeonardoBeccarini/legray/internal/model/entities"

// SimulationRequest asks for one run: one field, one soil, one weather series.
type SimulationRequest struct {
	RequestID      string                 `json:"request_id,omitempty"`
	FieldID        string                 `json:"field_id"`
	Soil           string                 `json:"soil"`
	Weather        entities.WeatherSeries `json:"weather"`
	CuttingDates   []string               `json:"cutting_dates,omitempty"`
	CutDays        []string               `json:"cut_days,omitempty"` // MM-DD, expanded over every year of the series
	RollingBalance bool                   `json:"rolling_balance,omitempty"`
	Window         string                 `json:"window,omitempty"` // "inclusive" (default) | "exclusive"
}
