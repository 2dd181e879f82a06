package entities

// WeatherSeries is the daily record handed over by the weather pipeline, kept
// column-wise. Index i of every column describes the same day.
type WeatherSeries struct {
	Date []string  `json:"date"` // YYYY-MM-DD, ascending
	T    []float64 `json:"T"`    // mean air temperature [°C]
	PREC []float64 `json:"PREC"` // precipitation [mm], >= 0
	Rg   []float64 `json:"R_g"`  // global radiation [MJ/m²/day]
}

// Len is the length of the date column.
func (w WeatherSeries) Len() int { return len(w.Date) }

// Day returns the i-th record. It panics when i is out of range of any column.
func (w WeatherSeries) Day(i int) DailyWeather {
	return DailyWeather{Date: w.Date[i], T: w.T[i], PREC: w.PREC[i], Rg: w.Rg[i]}
}

// Append adds one record to every column.
func (w *WeatherSeries) Append(d DailyWeather) {
	w.Date = append(w.Date, d.Date)
	w.T = append(w.T, d.T)
	w.PREC = append(w.PREC, d.PREC)
	w.Rg = append(w.Rg, d.Rg)
}

// DailyWeather is one row of a WeatherSeries.
type DailyWeather struct {
	Date string  `json:"date"`
	T    float64 `json:"T"`
	PREC float64 `json:"PREC"`
	Rg   float64 `json:"R_g"`
}
