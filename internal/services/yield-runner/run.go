package yieldrunner

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/legray"
	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/internal/report"
	"github.com/LeonardoBeccarini/legray/internal/schedule"
	"github.com/LeonardoBeccarini/legray/internal/weather"
)

// Execute runs rf and writes the yield table to rf.Output, or to stdout when
// no output file is set.
func Execute(ctx context.Context, rf RunFile, stdout io.Writer, log *zap.SugaredLogger) (*legray.Result, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := rf.Validate(); err != nil {
		return nil, err
	}
	ws, err := loadWeather(ctx, rf, log)
	if err != nil {
		return nil, err
	}

	soil := entities.ParseSoilTexture(rf.Soil)
	if soil == entities.SoilUnknown {
		log.Warnf("yield-runner: unknown soil %q, using PAWC %.0f", rf.Soil, entities.DefaultPAWC)
	}
	window, err := legray.ParseWindow(rf.Window)
	if err != nil {
		return nil, err
	}
	var derived []string
	if len(rf.CutDays) > 0 || len(rf.CuttingDates) == 0 {
		if derived, err = schedule.Annual(ws.Date, rf.CutDays...); err != nil {
			return nil, err
		}
	}

	res, err := legray.Run(legray.Input{
		Soil:         soil,
		Weather:      ws,
		CuttingDates: schedule.Merge(rf.CuttingDates, derived),
	}, legray.Options{RollingBalance: rf.RollingBalance, Window: window, Logger: log})
	if err != nil {
		return nil, err
	}

	if err := writeReport(rf.Output, stdout, res); err != nil {
		return nil, err
	}
	for _, s := range report.Summarize(res.Yields) {
		log.Infof("yield-runner: %d cuts=%d total=%.3f mean=%.3f min=%.3f max=%.3f", s.Year, s.Cuts, s.Total, s.Mean, s.Min, s.Max)
	}
	log.Infof("yield-runner: soil=%s pawc=%.0f days=%d cuts=%d unmatched=%d", soil, res.PAWC, len(res.Days), len(res.Yields), len(res.Unmatched))
	return res, nil
}

func loadWeather(ctx context.Context, rf RunFile, log *zap.SugaredLogger) (entities.WeatherSeries, error) {
	if rf.WeatherURL != "" {
		from, err := entities.ParseDate(rf.From)
		if err != nil {
			return entities.WeatherSeries{}, fmt.Errorf("from: %w", err)
		}
		to, err := entities.ParseDate(rf.To)
		if err != nil {
			return entities.WeatherSeries{}, fmt.Errorf("to: %w", err)
		}
		c, err := weather.NewClient(weather.ClientConfig{BaseURL: rf.WeatherURL, MaxRetries: 3, Logger: log})
		if err != nil {
			return entities.WeatherSeries{}, err
		}
		return c.FetchSeries(ctx, *rf.Latitude, *rf.Longitude, from, to)
	}

	f, err := os.Open(rf.Weather)
	if err != nil {
		return entities.WeatherSeries{}, fmt.Errorf("weather: %w", err)
	}
	defer f.Close()
	opts := weather.CSVOptions{Latitude: rf.Latitude, Krs: rf.Krs, Scale: rf.Scale, StretchTmax: rf.StretchTmax}
	if r := []rune(rf.Comma); len(r) == 1 {
		opts.Comma = r[0]
	}
	ws, stats, err := weather.ReadCSV(f, opts)
	if err != nil {
		return entities.WeatherSeries{}, fmt.Errorf("weather %s: %w", rf.Weather, err)
	}
	log.Infof("yield-runner: read %d days from %s (rain clamped=%d, tmin/tmax swapped=%d, R_g estimated=%d)",
		stats.Rows, rf.Weather, stats.ClampedRain, stats.SwappedExtremes, stats.EstimatedRadiation)
	return ws, nil
}

func writeReport(path string, stdout io.Writer, res *legray.Result) error {
	if path == "" || path == "-" {
		return report.WriteCSV(stdout, res.Yields)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := report.WriteCSV(f, res.Yields); err != nil {
		f.Close()
		return fmt.Errorf("output %s: %w", path, err)
	}
	return f.Close()
}
