package types

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/quantforge/backtest/pkg/errors"
)

// Bar is one row of a historical series: the daily close prices and volumes
// for every instrument in the universe.
type Bar struct {
	// Date is the trading day of this bar.
	Date time.Time `yaml:"date"`
	// Prices holds one close price per instrument, indexed like Symbols.
	Prices []float64 `yaml:"prices"`
	// Volumes holds one volume per instrument, indexed like Symbols.
	Volumes []float64 `yaml:"volumes"`
}

// HistoricalSeries is the read-only market data input for a simulation run.
// Bars are ordered by strictly increasing date and every bar carries exactly
// one price and volume per symbol.
type HistoricalSeries struct {
	// Symbols names the instruments; instrument indexes throughout the
	// engine address this slice.
	Symbols []string `yaml:"symbols"`
	// Bars is the ordered daily sequence.
	Bars []Bar `yaml:"bars"`
}

// Len returns the number of bars.
func (s *HistoricalSeries) Len() int {
	return len(s.Bars)
}

// Width returns the number of instruments.
func (s *HistoricalSeries) Width() int {
	return len(s.Symbols)
}

// ClosePrices returns the full close-price column for one instrument.
func (s *HistoricalSeries) ClosePrices(instrument int) []float64 {
	prices := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		prices[i] = bar.Prices[instrument]
	}

	return prices
}

// ClosePricesUntil returns the close-price column for one instrument up to
// and including the given index. Signal generators use this to build their
// causal window.
func (s *HistoricalSeries) ClosePricesUntil(instrument, index int) []float64 {
	prices := make([]float64, index+1)
	for i := 0; i <= index; i++ {
		prices[i] = s.Bars[i].Prices[instrument]
	}

	return prices
}

// Window restricts the series to bars within the optional start and end
// times, inclusive. Bars are date-ordered, so the result is a contiguous
// subslice sharing the backing array.
func (s *HistoricalSeries) Window(start, end optional.Option[time.Time]) *HistoricalSeries {
	first := 0
	last := len(s.Bars)

	if start.IsSome() {
		from := start.Unwrap()
		for first < last && s.Bars[first].Date.Before(from) {
			first++
		}
	}

	if end.IsSome() {
		until := end.Unwrap()
		for last > first && s.Bars[last-1].Date.After(until) {
			last--
		}
	}

	return &HistoricalSeries{
		Symbols: s.Symbols,
		Bars:    s.Bars[first:last],
	}
}

// CheckBar validates a single bar against the series invariants: vector
// widths matching the symbol universe and finite, positive prices.
func (s *HistoricalSeries) CheckBar(index int) error {
	bar := s.Bars[index]
	if len(bar.Prices) != len(s.Symbols) {
		return errors.Newf(errors.ErrCodeDataIntegrity,
			"bar %d has %d prices, expected %d", index, len(bar.Prices), len(s.Symbols))
	}

	if len(bar.Volumes) != len(s.Symbols) {
		return errors.Newf(errors.ErrCodeDataIntegrity,
			"bar %d has %d volumes, expected %d", index, len(bar.Volumes), len(s.Symbols))
	}

	for i, price := range bar.Prices {
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return errors.Newf(errors.ErrCodeDataIntegrity,
				"bar %d has malformed price %f for instrument %d", index, price, i)
		}
	}

	return nil
}

// Validate checks the whole series: non-empty universe, strictly increasing
// dates, and every bar well formed.
func (s *HistoricalSeries) Validate() error {
	if len(s.Symbols) == 0 {
		return errors.New(errors.ErrCodeDataIntegrity, "series has no symbols")
	}

	if len(s.Bars) == 0 {
		return errors.New(errors.ErrCodeDataIntegrity, "series has no bars")
	}

	for i := range s.Bars {
		if err := s.CheckBar(i); err != nil {
			return err
		}

		if i > 0 && !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return errors.Newf(errors.ErrCodeDataIntegrity,
				"bar %d date %s is not after bar %d date %s",
				i, s.Bars[i].Date.Format(time.DateOnly), i-1, s.Bars[i-1].Date.Format(time.DateOnly))
		}
	}

	return nil
}
