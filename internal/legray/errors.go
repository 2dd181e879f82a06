package legray

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySeries      = errors.New("legray: empty weather series")
	ErrMismatchedSeries = errors.New("legray: weather columns differ in length")
	ErrMalformedDate    = errors.New("legray: malformed date")
	ErrUnorderedSeries  = errors.New("legray: dates not strictly ascending")
	ErrDegenerateET     = errors.New("legray: non-finite potential evapotranspiration")
	ErrInvalidInput     = errors.New("legray: invalid daily input")
	ErrWindowRange      = errors.New("legray: cut window out of range")
)

// SeriesLengthError reports a weather column whose length differs from the
// date column.
type SeriesLengthError struct {
	Column string
	Got    int
	Want   int
}

func (e *SeriesLengthError) Error() string {
	return fmt.Sprintf("%s: column %s has %d values, date has %d", ErrMismatchedSeries, e.Column, e.Got, e.Want)
}

func (e *SeriesLengthError) Unwrap() error { return ErrMismatchedSeries }

// DateError identifies a date string that cannot be read as YYYY-MM-DD.
// Column is "date" for the weather series and "cutting_dates" for the cut list.
type DateError struct {
	Column string
	Index  int
	Value  string
	Err    error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s: %s[%d] = %q: %v", ErrMalformedDate, e.Column, e.Index, e.Value, e.Err)
}

func (e *DateError) Unwrap() []error { return []error{ErrMalformedDate, e.Err} }

// OrderError is returned when day Index does not come after the previous day.
type OrderError struct {
	Index    int
	Date     string
	Previous string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s: date[%d] = %s follows %s", ErrUnorderedSeries, e.Index, e.Date, e.Previous)
}

func (e *OrderError) Unwrap() error { return ErrUnorderedSeries }

// DayError ties a failed daily step to its position in the series.
type DayError struct {
	Index int
	Date  string
	Err   error
}

func (e *DayError) Error() string {
	return fmt.Sprintf("day %d (%s): %v", e.Index, e.Date, e.Err)
}

func (e *DayError) Unwrap() error { return e.Err }
