package legray

import (
	"fmt"
	"math"
	"time"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
)

// DayInput is what one step of the water balance consumes.
type DayInput struct {
	T     float64 // mean air temperature [°C]
	PREC  float64 // precipitation [mm]
	Rg    float64 // global radiation [MJ/m²/day]
	Month time.Month
}

// StepResult is the outcome of one day.
type StepResult struct {
	ETP float64 // potential evapotranspiration [mm]
	ETA float64 // actual evapotranspiration [mm]
	PAW float64 // plant-available water after the day [mm], in [0, PAWC]
}

// PotentialET is eq. 2 of Bachinger & Reining (2009), in mm/day.
func PotentialET(rg, t float64) float64 {
	return (93 + rg) * (22 + t) / (150 * (123 + t))
}

// NextPAW is eq. 3: the day's balance clamped to [0, pawc].
func NextPAW(paw, prec, etp, pawc float64) float64 {
	next := paw + prec - etp
	if next > pawc {
		return pawc
	}
	if next < 0 {
		return 0
	}
	return next
}

// ActualET is eq. 4, one-phase approach. The water limit applies first; a
// cold day or a dormant month then overrides it with 0.
func ActualET(paw, prec, etp, t float64, m time.Month) float64 {
	if !entities.Growing(m, t) {
		return 0
	}
	if etp > paw+prec {
		return paw + prec
	}
	return etp
}

// Step advances the water balance by one day starting from paw.
func Step(paw, pawc float64, in DayInput) (StepResult, error) {
	if err := checkInput(in); err != nil {
		return StepResult{}, err
	}
	etp := PotentialET(in.Rg, in.T)
	if math.IsNaN(etp) || math.IsInf(etp, 0) {
		return StepResult{}, fmt.Errorf("%w: T=%g R_g=%g gives ETP=%g", ErrDegenerateET, in.T, in.Rg, etp)
	}
	return StepResult{
		ETP: etp,
		ETA: ActualET(paw, in.PREC, etp, in.T, in.Month),
		PAW: NextPAW(paw, in.PREC, etp, pawc),
	}, nil
}

func checkInput(in DayInput) error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"T", in.T}, {"PREC", in.PREC}, {"R_g", in.Rg}} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s=%g", ErrInvalidInput, v.name, v.val)
		}
	}
	if in.PREC < 0 {
		return fmt.Errorf("%w: negative PREC=%g", ErrInvalidInput, in.PREC)
	}
	if in.Month < time.January || in.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidInput, int(in.Month))
	}
	return nil
}
