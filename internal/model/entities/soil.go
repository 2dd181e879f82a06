package entities

import "strings"

// SoilTexture is the texture class of the root-zone soil.
type SoilTexture int

const (
	SoilUnknown SoilTexture = iota
	SoilSand
	SoilLoamySand
	SoilSandyLoam
	SoilLoam
	SoilSiltyLoam
	SoilSilt
	SoilSandyClay
	SoilSiltyClay
	SoilClay
)

// DefaultPAWC is the capacity used for unrecognized texture classes (mm).
const DefaultPAWC = 140.0

var soilNames = map[SoilTexture]string{
	SoilSand:      "sand",
	SoilLoamySand: "loamy sand",
	SoilSandyLoam: "sandy loam",
	SoilLoam:      "loam",
	SoilSiltyLoam: "silty loam",
	SoilSilt:      "silt",
	SoilSandyClay: "sandy clay",
	SoilSiltyClay: "silty clay",
	SoilClay:      "clay",
}

// SoilTextures lists the recognized classes in table order.
func SoilTextures() []SoilTexture {
	return []SoilTexture{
		SoilSand, SoilLoamySand, SoilSandyLoam, SoilLoam, SoilSiltyLoam,
		SoilSilt, SoilSandyClay, SoilSiltyClay, SoilClay,
	}
}

// ParseSoilTexture maps a texture name ("sandy loam", "Silty_Clay", ...) to its
// class. Anything it does not recognize becomes SoilUnknown.
func ParseSoilTexture(name string) SoilTexture {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Join(strings.FieldsFunc(n, func(r rune) bool { return r == ' ' || r == '_' || r == '-' }), " ")
	for st, s := range soilNames {
		if s == n {
			return st
		}
	}
	return SoilUnknown
}

func (s SoilTexture) String() string {
	if n, ok := soilNames[s]; ok {
		return n
	}
	return "unknown"
}

// PAWC returns the plant-available water capacity of the root zone in mm.
func (s SoilTexture) PAWC() float64 {
	switch s {
	case SoilSand:
		return 80
	case SoilLoamySand:
		return 110
	case SoilSandyLoam:
		return 140
	case SoilLoam:
		return 195
	case SoilSiltyLoam:
		return 235
	case SoilSilt:
		return 325
	case SoilSandyClay:
		return 145
	case SoilSiltyClay:
		return 180
	case SoilClay:
		return 160
	default:
		return DefaultPAWC
	}
}

// LookupPAWC is ParseSoilTexture(name).PAWC(). It never fails.
func LookupPAWC(name string) float64 {
	return ParseSoilTexture(name).PAWC()
}

// MarshalText / UnmarshalText let the class travel as its name in JSON and Hjson.
func (s SoilTexture) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SoilTexture) UnmarshalText(b []byte) error {
	*s = ParseSoilTexture(string(b))
	return nil
}
