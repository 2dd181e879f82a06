package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/legray/internal/model/messages"
)

// buildFlux selects the newest cuts of measurement, one row per cut. minutes
// <= 0 searches the whole bucket.
func buildFlux(bucket, measurement, fieldID string, minutes, limit int) string {
	start := "0"
	if minutes > 0 {
		start = fmt.Sprintf("-%dm", minutes)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: %s)\n", start)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", measurement)
	if fieldID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.field_id == %q)\n", fieldID)
	}
	b.WriteString("  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"_time\"], desc: true)\n")
	fmt.Fprintf(&b, "  |> limit(n: %d)\n", limit)
	return b.String()
}

// LatestYields returns up to limit cuts, newest cut date first.
func (s *Store) LatestYields(ctx context.Context, fieldID string, minutes, limit int) ([]messages.YieldEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	res, err := s.client.QueryAPI(s.cfg.Org).Query(ctx, buildFlux(s.cfg.Bucket, s.cfg.YieldMeasurement, fieldID, minutes, limit))
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer res.Close()

	out := make([]messages.YieldEvent, 0, limit)
	for res.Next() {
		rec := res.Record()
		out = append(out, messages.YieldEvent{
			RunID:     str(rec.ValueByKey("run_id")),
			FieldID:   str(rec.ValueByKey("field_id")),
			Soil:      str(rec.ValueByKey("soil")),
			Date:      rec.Time().UTC().Format("2006-01-02"),
			Yield:     num(rec.ValueByKey("yield")),
			CN:        int(num(rec.ValueByKey("cn"))),
			SumETA:    num(rec.ValueByKey("sum_eta_mm")),
			Days:      int(num(rec.ValueByKey("window_days"))),
			Timestamp: rec.Time().UTC(),
		})
	}
	if err := res.Err(); err != nil {
		return out, fmt.Errorf("influx query: %w", err)
	}
	return out, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func num(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return 0
}
