package weather

import (
	"math"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
)

const (
	solarConstant = 0.0820 // MJ/m²/min
	// KrsInterior is the Hargreaves radiation coefficient for inland sites.
	KrsInterior = 0.16
	// KrsCoastal is the coefficient for sites on the coast.
	KrsCoastal = 0.19
)

// ExtraterrestrialRadiation is FAO-56 eq. 21 (MJ/m²/day) for a latitude in
// degrees on the given day.
func ExtraterrestrialRadiation(latitudeDeg float64, d entities.Date) float64 {
	phi := latitudeDeg * math.Pi / 180
	j := float64(d.YearDay())
	dr := 1 + 0.033*math.Cos(2*math.Pi*j/365)
	delta := 0.409 * math.Sin(2*math.Pi*j/365-1.39)

	x := -math.Tan(phi) * math.Tan(delta)
	x = math.Max(-1, math.Min(1, x)) // polar day / polar night
	ws := math.Acos(x)

	ra := 24 * 60 / math.Pi * solarConstant * dr *
		(ws*math.Sin(phi)*math.Sin(delta) + math.Cos(phi)*math.Cos(delta)*math.Sin(ws))
	return math.Max(0, ra)
}

// EstimateRadiation is the Hargreaves-Samani estimate of global radiation from
// the daily temperature range, capped at clear-sky radiation (0.75 R_a).
func EstimateRadiation(latitudeDeg float64, d entities.Date, tmin, tmax, krs float64) float64 {
	if krs <= 0 {
		krs = KrsInterior
	}
	ra := ExtraterrestrialRadiation(latitudeDeg, d)
	rs := krs * math.Sqrt(math.Max(tmax-tmin, 0)) * ra
	return math.Min(rs, 0.75*ra)
}
