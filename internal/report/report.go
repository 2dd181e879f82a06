// Package report renders model results for downstream tools.
package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/LeonardoBeccarini/legray/internal/model/messages"
)

// Header is the first line of the yield table.
const Header = "date;yield;CN"

// WriteCSV writes the semicolon-separated yield table, one line per record.
// Yields keep full precision.
func WriteCSV(w io.Writer, yields []messages.YieldRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, y := range yields {
		line := y.Date + ";" + strconv.FormatFloat(y.Yield, 'f', -1, 64) + ";" + strconv.Itoa(y.CN)
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Season aggregates the cuts of one calendar year.
type Season struct {
	Year  int     `json:"year"`
	Cuts  int     `json:"cuts"`
	Total float64 `json:"total"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summarize groups yields by the year of their date. Records whose date has
// no leading year are skipped.
func Summarize(yields []messages.YieldRecord) []Season {
	byYear := make(map[int][]float64)
	for _, y := range yields {
		if len(y.Date) < 4 {
			continue
		}
		year, err := strconv.Atoi(y.Date[:4])
		if err != nil {
			continue
		}
		byYear[year] = append(byYear[year], y.Yield)
	}

	out := make([]Season, 0, len(byYear))
	for year, v := range byYear {
		total := floats.Sum(v)
		out = append(out, Season{
			Year:  year,
			Cuts:  len(v),
			Total: total,
			Mean:  total / float64(len(v)),
			Min:   floats.Min(v),
			Max:   floats.Max(v),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
