package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/LeonardoBeccarini/legray/internal/logging"
	yieldrunner "github.com/LeonardoBeccarini/legray/internal/services/yield-runner"
)

func main() {
	configPath := flag.String("config", "", "Hjson run file")
	soil := flag.String("soil", "", "soil texture, e.g. \"sandy loam\"")
	weatherPath := flag.String("weather", "", "daily weather CSV")
	comma := flag.String("comma", "", "CSV separator (default ;)")
	cuts := flag.String("cuts", "", "comma separated cutting dates YYYY-MM-DD")
	cutDays := flag.String("cut-days", "", "comma separated MM-DD cut days repeated every year")
	lat := flag.Float64("lat", 0, "latitude, needed to estimate R_g or to fetch weather")
	lon := flag.Float64("lon", 0, "longitude, needed to fetch weather")
	weatherURL := flag.String("weather-url", "", "weather service base URL")
	from := flag.String("from", "", "first day to fetch")
	to := flag.String("to", "", "last day to fetch")
	out := flag.String("out", "", "output CSV (stdout when empty)")
	rolling := flag.Bool("rolling", false, "carry the soil water balance from day to day")
	window := flag.String("window", "", "cut window: inclusive or exclusive")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	log := logging.Must("yield-runner", *debug)
	defer log.Sync()

	var rf yieldrunner.RunFile
	if *configPath != "" {
		var err error
		if rf, err = yieldrunner.LoadRunFile(*configPath); err != nil {
			log.Fatalf("%v", err)
		}
	}

	// flags given on the command line override the run file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "soil":
			rf.Soil = *soil
		case "weather":
			rf.Weather = *weatherPath
		case "comma":
			rf.Comma = *comma
		case "cuts":
			rf.CuttingDates = splitList(*cuts)
		case "cut-days":
			rf.CutDays = splitList(*cutDays)
		case "lat":
			rf.Latitude = lat
		case "lon":
			rf.Longitude = lon
		case "weather-url":
			rf.WeatherURL = *weatherURL
		case "from":
			rf.From = *from
		case "to":
			rf.To = *to
		case "out":
			rf.Output = *out
		case "rolling":
			rf.RollingBalance = *rolling
		case "window":
			rf.Window = *window
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := yieldrunner.Execute(ctx, rf, os.Stdout, log); err != nil {
		log.Errorf("yield-runner: %v", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
