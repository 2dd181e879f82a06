// Package legray implements the LEGRAY yield model for legume-grass swards
// (Bachinger & Reining 2009, Grass and Forage Science 64:144-159): a daily
// water balance drives actual evapotranspiration, and the evapotranspiration
// accumulated between cuts is turned into a yield at every cutting date.
package legray

import (
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/internal/model/messages"
)

// Input is one site/soil/weather triple.
type Input struct {
	Soil         entities.SoilTexture
	Weather      entities.WeatherSeries
	CuttingDates []string
}

// Options tune the driver. The zero value reproduces the published runs.
type Options struct {
	// RollingBalance carries each day's PAW into the next day. When false
	// every day starts again from PAWC/2 and the updated PAW is only reported.
	RollingBalance bool
	Window         Window
	Logger         *zap.SugaredLogger
}

// DayTrace is the water balance of one simulated day.
type DayTrace struct {
	Date string  `json:"date"`
	ETP  float64 `json:"etp"`
	ETA  float64 `json:"eta"`
	PAW  float64 `json:"paw"`
	CN   int     `json:"cn"`
}

// CutWindow records which days were summed for a YieldRecord.
type CutWindow struct {
	Date   string  `json:"date"`
	Start  int     `json:"start"`
	End    int     `json:"end"` // inclusive; End < Start means empty
	SumETA float64 `json:"sum_eta"`
}

// Days is the number of days in the window.
func (w CutWindow) Days() int {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

// Result is the output of one run.
type Result struct {
	PAWC      float64                `json:"pawc"`
	Yields    []messages.YieldRecord `json:"yields"`
	Windows   []CutWindow            `json:"windows"`
	Days      []DayTrace             `json:"days"`
	Unmatched []string               `json:"unmatched,omitempty"` // cutting dates absent from the series
}

// state is everything the recurrence carries from one day to the next.
type state struct {
	year         int
	cn           int
	daysSinceCut int
	paw0         float64
	paw          float64
	eta          []float64
}

// Run simulates the whole series once, in date order.
func Run(in Input, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	dates, err := parseSeries(in.Weather)
	if err != nil {
		return nil, err
	}
	cuts, err := parseCuts(in.CuttingDates)
	if err != nil {
		return nil, err
	}

	pawc := in.Soil.PAWC()
	res := &Result{
		PAWC: pawc,
		Days: make([]DayTrace, 0, len(dates)),
	}
	s := state{
		year: dates[0].Year,
		cn:   1,
		paw0: pawc * 0.5,
		eta:  make([]float64, 0, len(dates)),
	}
	s.paw = s.paw0

	for i, d := range dates {
		w := in.Weather.Day(i)
		if d.Year > s.year {
			s.year = d.Year
			s.cn = 1
		}

		step, err := Step(s.paw, pawc, DayInput{T: w.T, PREC: w.PREC, Rg: w.Rg, Month: d.Month})
		if err != nil {
			return nil, &DayError{Index: i, Date: w.Date, Err: err}
		}
		s.eta = append(s.eta, step.ETA)
		if opts.RollingBalance {
			s.paw = step.PAW
		}
		res.Days = append(res.Days, DayTrace{Date: w.Date, ETP: step.ETP, ETA: step.ETA, PAW: step.PAW, CN: s.cn})

		if _, ok := cuts[d]; ok {
			delete(cuts, d)
			win := CutWindow{Date: w.Date, Start: i - s.daysSinceCut, End: i}
			if opts.Window == WindowExclusive {
				win.End = i - 1
			}
			if win.SumETA, err = SumETA(s.eta, win.Start, win.End); err != nil {
				return nil, &DayError{Index: i, Date: w.Date, Err: err}
			}
			if win.Days() == 0 {
				log.Warnf("simulation: empty cut window at %s, ETA sum taken as 0", w.Date)
			}
			rec := messages.YieldRecord{Date: w.Date, Yield: Yield(win.SumETA, s.cn), CN: s.cn}
			log.Debugf("simulation: cut date=%s yield=%.4f cn=%d window=[%d,%d] sumETA=%.2f",
				rec.Date, rec.Yield, rec.CN, win.Start, win.End, win.SumETA)
			res.Yields = append(res.Yields, rec)
			res.Windows = append(res.Windows, win)
			s.daysSinceCut = 0
			s.cn++
		}
		s.daysSinceCut++
	}

	for _, raw := range in.CuttingDates {
		d, _ := entities.ParseDate(raw)
		if _, ok := cuts[d]; ok {
			delete(cuts, d)
			res.Unmatched = append(res.Unmatched, raw)
			log.Warnf("simulation: cutting date %s is not in the weather series", raw)
		}
	}
	return res, nil
}

func parseSeries(w entities.WeatherSeries) ([]entities.Date, error) {
	n := w.Len()
	if n == 0 {
		return nil, ErrEmptySeries
	}
	for _, c := range []struct {
		name string
		len  int
	}{{"T", len(w.T)}, {"PREC", len(w.PREC)}, {"R_g", len(w.Rg)}} {
		if c.len != n {
			return nil, &SeriesLengthError{Column: c.name, Got: c.len, Want: n}
		}
	}

	dates := make([]entities.Date, n)
	for i, raw := range w.Date {
		d, err := entities.ParseDate(raw)
		if err != nil {
			return nil, &DateError{Column: "date", Index: i, Value: raw, Err: err}
		}
		if i > 0 && !d.After(dates[i-1]) {
			return nil, &OrderError{Index: i, Date: raw, Previous: w.Date[i-1]}
		}
		dates[i] = d
	}
	return dates, nil
}

func parseCuts(raw []string) (map[entities.Date]struct{}, error) {
	cuts := make(map[entities.Date]struct{}, len(raw))
	for i, s := range raw {
		d, err := entities.ParseDate(s)
		if err != nil {
			return nil, &DateError{Column: "cutting_dates", Index: i, Value: s, Err: err}
		}
		cuts[d] = struct{}{}
	}
	return cuts, nil
}
