// Package yieldrunner runs the yield model once for one site, soil and
// weather file and writes the yield table.
package yieldrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
)

// RunFile describes one run. It is read from Hjson, so comments and
// unquoted strings are allowed:
//
//	{
//	  soil: loam
//	  weather: data/berlin.csv
//	  cut_days: ["05-15", "07-01", "08-01"]
//	  output: yields.csv
//	}
type RunFile struct {
	Soil           string   `json:"soil"`
	Weather        string   `json:"weather"` // CSV path, relative to the run file
	Comma          string   `json:"comma,omitempty"`
	CuttingDates   []string `json:"cutting_dates,omitempty"`
	CutDays        []string `json:"cut_days,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Krs            float64  `json:"krs,omitempty"`
	Output         string   `json:"output,omitempty"` // "" or "-" is stdout
	RollingBalance bool     `json:"rolling_balance,omitempty"`
	Window         string   `json:"window,omitempty"`

	// Unit factors per weather column, e.g. {rr: 0.1, tg: 0.1, tn: 0.1, tx: 0.1}
	// for ECAD files, and the ECAD repair of tmin > tmax.
	Scale       map[string]float64 `json:"scale,omitempty"`
	StretchTmax bool               `json:"stretch_tmax,omitempty"`

	// Fetch the series from a weather service instead of Weather.
	WeatherURL string `json:"weather_url,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
}

// LoadRunFile reads an Hjson run file. Relative weather and output paths are
// resolved against the file's directory.
func LoadRunFile(path string) (RunFile, error) {
	var rf RunFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return rf, fmt.Errorf("run file: %w", err)
	}
	if err := hjson.Unmarshal(raw, &rf); err != nil {
		return rf, fmt.Errorf("run file %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	rf.Weather = resolve(dir, rf.Weather)
	if rf.Output != "-" {
		rf.Output = resolve(dir, rf.Output)
	}
	return rf, nil
}

func resolve(dir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks that the file names a weather source.
func (rf RunFile) Validate() error {
	if rf.Weather == "" && rf.WeatherURL == "" {
		return fmt.Errorf("run file: weather or weather_url is required")
	}
	if rf.WeatherURL != "" {
		if rf.Latitude == nil || rf.Longitude == nil {
			return fmt.Errorf("run file: weather_url needs latitude and longitude")
		}
		if rf.From == "" || rf.To == "" {
			return fmt.Errorf("run file: weather_url needs from and to")
		}
	}
	if len([]rune(rf.Comma)) > 1 {
		return fmt.Errorf("run file: comma must be a single character, got %q", rf.Comma)
	}
	return nil
}
