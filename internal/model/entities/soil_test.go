package entities

import "testing"

func TestLookupPAWC_Table(t *testing.T) {
	cases := []struct {
		name string
		want float64
	}{
		{"sand", 80},
		{"loamy sand", 110},
		{"sandy loam", 140},
		{"loam", 195},
		{"silty loam", 235},
		{"silt", 325},
		{"sandy clay", 145},
		{"silty clay", 180},
		{"clay", 160},
		{"Silty_Clay", 180},
		{"  sandy-loam ", 140},
		{"peat", DefaultPAWC},
		{"", DefaultPAWC},
		{"clay loam", DefaultPAWC},
	}
	for _, tc := range cases {
		if got := LookupPAWC(tc.name); got != tc.want {
			t.Errorf("LookupPAWC(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLookupPAWC_Stable(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := LookupPAWC("clay"); got != 160 {
			t.Fatalf("call %d: LookupPAWC(clay) = %v", i, got)
		}
	}
}

func TestSoilTextures_RoundTripNames(t *testing.T) {
	for _, st := range SoilTextures() {
		if st.PAWC() <= 0 {
			t.Errorf("%s: non-positive PAWC %v", st, st.PAWC())
		}
		if back := ParseSoilTexture(st.String()); back != st {
			t.Errorf("ParseSoilTexture(%q) = %v, want %v", st.String(), back, st)
		}
	}
	if SoilUnknown.String() != "unknown" {
		t.Errorf("unknown name = %q", SoilUnknown.String())
	}
}

func TestSoilTexture_UnmarshalText(t *testing.T) {
	var st SoilTexture
	if err := st.UnmarshalText([]byte("silt")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st != SoilSilt {
		t.Fatalf("got %v, want silt", st)
	}
	b, _ := st.MarshalText()
	if string(b) != "silt" {
		t.Fatalf("marshal = %q", b)
	}
}
