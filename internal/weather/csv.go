// Package weather prepares the daily weather series the yield model consumes.
package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
)

// CSVOptions controls ReadCSV.
type CSVOptions struct {
	Comma rune // field separator, ';' when zero
	// Latitude is required when the file has no radiation column and
	// radiation must be estimated from tmin/tmax.
	Latitude *float64
	Krs      float64
	// Scale multiplies raw values per column, keyed by canonical name or alias
	// ("rr": 0.1 for ECAD files in 0.1 mm). Other columns keep factor 1.
	Scale map[string]float64
	// StretchTmax repairs tmin > tmax with tmax = tmin*1.1 instead of swapping,
	// the way the ECAD preprocessing did.
	StretchTmax bool
}

// ReadStats counts the corrections applied while reading.
type ReadStats struct {
	Rows               int
	ClampedRain        int
	SwappedExtremes    int
	EstimatedRadiation int
}

var columnAliases = map[string][]string{
	"date": {"date", "day"},
	"T":    {"t", "tg", "tmean", "tavg"},
	"PREC": {"prec", "rr", "precip", "rain"},
	"R_g":  {"r_g", "rg", "rs", "radiation"},
	"tmin": {"tmin", "tn"},
	"tmax": {"tmax", "tx"},
}

// ReadCSV reads a delimited daily weather file with a header row. Values
// must be in mm, °C and MJ/m²/day once opts.Scale is applied. Negative
// precipitation is set to 0, swapped tmin/tmax are put back in order, a
// missing mean temperature is the mean of the extremes and a missing R_g
// column is estimated with EstimateRadiation.
func ReadCSV(r io.Reader, opts CSVOptions) (entities.WeatherSeries, ReadStats, error) {
	var (
		ws    entities.WeatherSeries
		stats ReadStats
	)
	reader := csv.NewReader(r)
	reader.Comma = opts.Comma
	if reader.Comma == 0 {
		reader.Comma = ';'
	}
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	scale, err := columnScales(opts.Scale)
	if err != nil {
		return ws, stats, err
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ws, stats, fmt.Errorf("weather csv: empty file")
		}
		return ws, stats, fmt.Errorf("weather csv: read header: %w", err)
	}
	cols := mapColumns(header)

	if _, ok := cols["date"]; !ok {
		return ws, stats, fmt.Errorf("weather csv: missing date column")
	}
	if _, ok := cols["PREC"]; !ok {
		return ws, stats, fmt.Errorf("weather csv: missing precipitation column")
	}
	_, hasT := cols["T"]
	_, hasRg := cols["R_g"]
	_, hasMin := cols["tmin"]
	_, hasMax := cols["tmax"]
	extremes := hasMin && hasMax
	if !hasT && !extremes {
		return ws, stats, fmt.Errorf("weather csv: need a mean temperature column or tmin and tmax")
	}
	if !hasRg {
		if !extremes {
			return ws, stats, fmt.Errorf("weather csv: need R_g or tmin and tmax to estimate it")
		}
		if opts.Latitude == nil {
			return ws, stats, fmt.Errorf("weather csv: latitude required to estimate R_g")
		}
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ws, stats, fmt.Errorf("weather csv: line %d: %w", line, err)
		}
		get := func(col string) (float64, error) {
			raw := strings.TrimSpace(field(rec, cols[col]))
			v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				return 0, fmt.Errorf("weather csv: line %d: %s %q: %w", line, col, raw, err)
			}
			if f, ok := scale[col]; ok {
				v *= f
			}
			return v, nil
		}

		day := entities.DailyWeather{Date: strings.TrimSpace(field(rec, cols["date"]))}
		date, err := entities.ParseDate(day.Date)
		if err != nil {
			return ws, stats, fmt.Errorf("weather csv: line %d: %w", line, err)
		}
		if day.PREC, err = get("PREC"); err != nil {
			return ws, stats, err
		}
		if day.PREC < 0 {
			day.PREC = 0
			stats.ClampedRain++
		}

		var tmin, tmax float64
		if extremes {
			if tmin, err = get("tmin"); err != nil {
				return ws, stats, err
			}
			if tmax, err = get("tmax"); err != nil {
				return ws, stats, err
			}
			if tmin > tmax {
				if opts.StretchTmax {
					tmax = tmin * 1.1
				} else {
					tmin, tmax = tmax, tmin
				}
				stats.SwappedExtremes++
			}
		}
		if hasT {
			if day.T, err = get("T"); err != nil {
				return ws, stats, err
			}
		} else {
			day.T = (tmin + tmax) / 2
		}
		if hasRg {
			if day.Rg, err = get("R_g"); err != nil {
				return ws, stats, err
			}
		} else {
			day.Rg = EstimateRadiation(*opts.Latitude, date, tmin, tmax, opts.Krs)
			stats.EstimatedRadiation++
		}

		ws.Append(day)
		stats.Rows++
	}
	return ws, stats, nil
}

// columnScales resolves Scale keys to canonical column names.
func columnScales(in map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(in))
	for k, f := range in {
		canon, ok := canonicalColumn(k)
		if !ok || canon == "date" {
			return nil, fmt.Errorf("weather csv: no scalable column %q", k)
		}
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("weather csv: scale for %s must be positive, got %g", k, f)
		}
		out[canon] = f
	}
	return out, nil
}

func canonicalColumn(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for canon, aliases := range columnAliases {
		for _, a := range aliases {
			if name == a {
				return canon, true
			}
		}
	}
	return "", false
}

func mapColumns(header []string) map[string]int {
	out := make(map[string]int)
	for i, h := range header {
		canon, ok := canonicalColumn(strings.TrimPrefix(h, "\ufeff"))
		if !ok {
			continue
		}
		if _, seen := out[canon]; !seen {
			out[canon] = i
		}
	}
	return out
}

func field(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}
