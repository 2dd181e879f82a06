// Package schedule builds cutting-date lists for the yield model.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
)

// DefaultCutDays is the three-cut regime: mid May, start of July, start of August.
var DefaultCutDays = []string{"05-15", "07-01", "08-01"}

// Annual returns every date of the series whose MM-DD is one of monthDays,
// in series order. With no monthDays it uses DefaultCutDays.
func Annual(dates []string, monthDays ...string) ([]string, error) {
	if len(monthDays) == 0 {
		monthDays = DefaultCutDays
	}
	want := make(map[string]struct{}, len(monthDays))
	for _, md := range monthDays {
		norm, err := normalizeMonthDay(md)
		if err != nil {
			return nil, err
		}
		want[norm] = struct{}{}
	}

	var out []string
	for i, raw := range dates {
		d, err := entities.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("schedule: date[%d]: %w", i, err)
		}
		if _, ok := want[d.MonthDay()]; ok {
			out = append(out, raw)
		}
	}
	return out, nil
}

// Merge joins explicit dates with the ones derived from monthDays, removing
// duplicates and sorting chronologically.
func Merge(explicit []string, derived []string) []string {
	seen := make(map[string]struct{}, len(explicit)+len(derived))
	out := make([]string, 0, len(explicit)+len(derived))
	for _, list := range [][]string{explicit, derived} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// normalizeMonthDay accepts "5-15" or "05-15" and rejects days that exist in
// no year.
func normalizeMonthDay(s string) (string, error) {
	var m, d int
	if n, err := fmt.Sscanf(s, "%d-%d", &m, &d); err != nil || n != 2 {
		return "", fmt.Errorf("schedule: bad month-day %q", s)
	}
	if m < 1 || m > 12 {
		return "", fmt.Errorf("schedule: bad month in %q", s)
	}
	// 2000 is a leap year, so 02-29 is accepted.
	t := time.Date(2000, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if d < 1 || t.Month() != time.Month(m) {
		return "", fmt.Errorf("schedule: bad day in %q", s)
	}
	return fmt.Sprintf("%02d-%02d", m, d), nil
}
