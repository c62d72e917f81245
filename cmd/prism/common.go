package main

import (
	"fmt"
	"os"
	"time"

	"github.com/bobmcallan/prism/internal/app"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/storage/csvfile"
)

func loadApp() (*app.App, error) {
	a, err := app.NewApp(*configPath)
	if err != nil {
		return nil, fmt.Errorf("could not initialize: %w", err)
	}
	return a, nil
}

func readHoldingsFile(name string) (models.Holdings, error) {
	if name == "" {
		return nil, fmt.Errorf("a holdings file is required (-holdings)")
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	holdings, err := csvfile.ReadHoldings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return holdings, nil
}

func readPricesFile(name string) (*models.PriceTable, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	prices, err := csvfile.ReadPriceTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return prices, nil
}

// parseRange parses -from/-to. An empty -to means today; an empty -from
// means one year before -to.
func parseRange(from, to string) (time.Time, time.Time, error) {
	end := models.NormalizeDate(time.Now())
	if to != "" {
		d, err := models.ParseDate(to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("-to: %w", err)
		}
		end = d
	}
	start := end.AddDate(-1, 0, 0)
	if from != "" {
		d, err := models.ParseDate(from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("-from: %w", err)
		}
		start = d
	}
	return start, end, nil
}
