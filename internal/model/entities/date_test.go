package entities

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("1999-12-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 1999 || d.Month != time.December || d.Day != 31 {
		t.Fatalf("got %+v", d)
	}
	if d.String() != "1999-12-31" || d.MonthDay() != "12-31" {
		t.Fatalf("format: %s %s", d, d.MonthDay())
	}
	if d.YearDay() != 365 {
		t.Fatalf("yearday = %d", d.YearDay())
	}
}

func TestParseDate_Malformed(t *testing.T) {
	for _, s := range []string{"", "2000-1-01", "2000/01/01", "2000-13-01", "2000-02-30", "20000101", "2000-01-01T00:00:00Z"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q): expected error", s)
		}
	}
}

func TestDate_CompareAndAdd(t *testing.T) {
	a, _ := ParseDate("1999-12-31")
	b := a.AddDays(1)
	if b.String() != "2000-01-01" {
		t.Fatalf("AddDays = %s", b)
	}
	if !a.Before(b) || !b.After(a) || a.Compare(a) != 0 {
		t.Fatalf("ordering broken for %s / %s", a, b)
	}
}

func TestDormant(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		want := m == time.November || m == time.December || m == time.January || m == time.February
		if Dormant(m) != want {
			t.Errorf("Dormant(%s) = %v", m, !want)
		}
	}
	if Growing(time.June, 4.99) {
		t.Errorf("June at 4.99°C should not grow")
	}
	if !Growing(time.June, GrowthThresholdC) {
		t.Errorf("June at threshold should grow")
	}
}
