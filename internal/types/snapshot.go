package types

import "time"

// PortfolioSnapshot is the total valuation of the simulated portfolio at one
// time step: cash plus marked-to-market positions.
type PortfolioSnapshot struct {
	Date time.Time `yaml:"date"`
	// TotalValue = Cash + sum(quantity x price) over Positions.
	TotalValue float64 `yaml:"total_value"`
	Cash       float64 `yaml:"cash"`
	// Positions maps instrument index to held quantity.
	Positions map[int]float64 `yaml:"positions"`
	// StepReturn is the return relative to the prior snapshot, 0 for the first.
	StepReturn float64 `yaml:"step_return"`
}
