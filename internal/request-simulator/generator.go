package request_simulator

import (
	"math"
	"math/rand"
	"sync"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	"github.com/LeonardoBeccarini/legray/internal/weather"
)

// ====== Tunables ======
const (
	// meanTempC and tempAmplitudeC shape the annual temperature cycle,
	// warmest around day 200.
	meanTempC      = 9.0
	tempAmplitudeC = 9.5
	// diurnalRangeC is the mean tmax - tmin.
	diurnalRangeC = 9.0
	// rainProbability is the chance of a wet day; wet-day totals are
	// exponential with mean rainMeanMM.
	rainProbability = 0.45
	rainMeanMM      = 3.5
)

// WeatherGenerator produces plausible mid-latitude daily series for load and
// demo runs. It is deterministic for a given seed.
type WeatherGenerator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	latitude float64
}

func NewWeatherGenerator(latitude float64, seed int64) *WeatherGenerator {
	return &WeatherGenerator{rng: rand.New(rand.NewSource(seed)), latitude: latitude}
}

// Series returns n consecutive days starting at from.
func (g *WeatherGenerator) Series(from entities.Date, n int) entities.WeatherSeries {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ws entities.WeatherSeries
	for i := 0; i < n; i++ {
		d := from.AddDays(i)
		season := math.Sin(2 * math.Pi * float64(d.YearDay()-109) / 365.25)
		t := meanTempC + tempAmplitudeC*season + g.rng.NormFloat64()*2.5
		spread := math.Max(2, diurnalRangeC+2*season+g.rng.NormFloat64()*2)

		prec := 0.0
		if g.rng.Float64() < rainProbability {
			prec = math.Round(g.rng.ExpFloat64()*rainMeanMM*10) / 10
			// wet days are duller
			spread *= 0.7
		}
		rg := weather.EstimateRadiation(g.latitude, d, t-spread/2, t+spread/2, weather.KrsInterior)

		ws.Append(entities.DailyWeather{
			Date: d.String(),
			T:    round1(t),
			PREC: prec,
			Rg:   round1(rg),
		})
	}
	return ws
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
