package schedule

import (
	"reflect"
	"testing"

	"github.com/LeonardoBeccarini/legray/internal/model/entities"
)

func days(start string, n int) []string {
	d, _ := entities.ParseDate(start)
	out := make([]string, n)
	for i := range out {
		out[i] = d.AddDays(i).String()
	}
	return out
}

func TestAnnual_Default(t *testing.T) {
	got, err := Annual(days("1995-01-01", 365*2+1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1995-05-15", "1995-07-01", "1995-08-01", "1996-05-15", "1996-07-01", "1996-08-01"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAnnual_Custom(t *testing.T) {
	got, err := Annual(days("1996-02-20", 20), "2-29", "03-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1996-02-29", "1996-03-05"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAnnual_Errors(t *testing.T) {
	for _, md := range []string{"13-01", "02-30", "04-31", "0-10", "may-15", "05"} {
		if _, err := Annual(days("1996-01-01", 3), md); err == nil {
			t.Errorf("Annual(%q): expected error", md)
		}
	}
	if _, err := Annual([]string{"1996-1-1"}); err == nil {
		t.Errorf("expected error for malformed series date")
	}
}

func TestMerge(t *testing.T) {
	got := Merge([]string{"2000-07-01", "2000-05-20"}, []string{"2000-05-15", "2000-07-01"})
	want := []string{"2000-05-15", "2000-05-20", "2000-07-01"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
