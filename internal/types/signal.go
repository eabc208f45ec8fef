package types

import "time"

type SignalType string

const (
	// SignalTypeBuy tells the engine to open or add to a position
	SignalTypeBuy SignalType = "BUY"
	// SignalTypeSell tells the engine to close or reduce a position
	SignalTypeSell SignalType = "SELL"
	// SignalTypeHold tells the engine to take no action
	SignalTypeHold SignalType = "HOLD"
)

type Signal struct {
	// Time is the time of the signal
	Time time.Time `yaml:"time"`
	// Type is the type of the signal
	Type SignalType `yaml:"type"`
	// Strength scales the order size, in [0,1]: a BUY commits
	// strength x available cash, a SELL closes strength x held quantity
	Strength float64 `yaml:"strength"`
	// Instrument is the index of the instrument this signal targets
	Instrument int `yaml:"instrument"`
	// Reason is the human-readable cause of the signal
	Reason string `yaml:"reason"`
	// Confidence is the generator's confidence in the signal, in [0,1]
	Confidence float64 `yaml:"confidence"`
}
