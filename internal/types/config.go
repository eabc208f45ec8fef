package types

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/quantforge/backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RebalanceCadence controls how often the engine runs a rebalance pass.
type RebalanceCadence string

const (
	RebalanceNone    RebalanceCadence = "none"
	RebalanceWeekly  RebalanceCadence = "weekly"
	RebalanceMonthly RebalanceCadence = "monthly"
)

// AllRebalanceCadences lists the accepted cadence values for schema generation.
var AllRebalanceCadences = []any{string(RebalanceNone), string(RebalanceWeekly), string(RebalanceMonthly)}

// BacktestConfig holds the run-wide settings of one simulation.
type BacktestConfig struct {
	InitialCapital      float64                    `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting capital for the backtest in USD,minimum=0"`
	TransactionCostRate float64                    `yaml:"transaction_cost_rate" json:"transaction_cost_rate" validate:"gte=0,lt=1" jsonschema:"title=Transaction Cost Rate,description=Proportional cost applied to every order notional"`
	SlippageRate        float64                    `yaml:"slippage_rate" json:"slippage_rate" validate:"gte=0,lt=1" jsonschema:"title=Slippage Rate,description=Proportional slippage applied to every order notional"`
	RiskFreeRate        float64                    `yaml:"risk_free_rate" json:"risk_free_rate" validate:"gte=0" jsonschema:"title=Risk Free Rate,description=Annualized risk-free rate used by the ratio metrics"`
	RebalanceCadence    RebalanceCadence           `yaml:"rebalance_cadence" json:"rebalance_cadence" validate:"omitempty,oneof=none weekly monthly" jsonschema:"title=Rebalance Cadence,description=How often positions are rebalanced toward target weights"`
	StartTime           optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest period"`
	EndTime             optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest period"`
}

// UnmarshalYAML implements custom unmarshaling so optional times round-trip
// through plain YAML timestamps.
func (c *BacktestConfig) UnmarshalYAML(value *yaml.Node) error {
	type plainConfig struct {
		InitialCapital      float64          `yaml:"initial_capital"`
		TransactionCostRate float64          `yaml:"transaction_cost_rate"`
		SlippageRate        float64          `yaml:"slippage_rate"`
		RiskFreeRate        float64          `yaml:"risk_free_rate"`
		RebalanceCadence    RebalanceCadence `yaml:"rebalance_cadence"`
		StartTime           *time.Time       `yaml:"start_time"`
		EndTime             *time.Time       `yaml:"end_time"`
	}

	var plain plainConfig
	if err := value.Decode(&plain); err != nil {
		return err
	}

	c.InitialCapital = plain.InitialCapital
	c.TransactionCostRate = plain.TransactionCostRate
	c.SlippageRate = plain.SlippageRate
	c.RiskFreeRate = plain.RiskFreeRate
	c.RebalanceCadence = plain.RebalanceCadence

	if plain.StartTime != nil {
		c.StartTime = optional.Some(*plain.StartTime)
	}

	if plain.EndTime != nil {
		c.EndTime = optional.Some(*plain.EndTime)
	}

	return nil
}

// Validate checks the config invariants: positive capital, sane rates, and
// ordered dates when both bounds are present.
func (c *BacktestConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "invalid backtest config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() {
		start := c.StartTime.Unwrap()
		end := c.EndTime.Unwrap()

		if !start.Before(end) {
			return errors.Newf(errors.ErrCodeConfigValidation,
				"start time %s must be before end time %s",
				start.Format(time.DateOnly), end.Format(time.DateOnly))
		}
	}

	return nil
}

// LoadBacktestConfig parses a YAML document into a validated config.
func LoadBacktestConfig(content []byte) (BacktestConfig, error) {
	config := DefaultBacktestConfig()

	if err := yaml.Unmarshal(content, &config); err != nil {
		return BacktestConfig{}, errors.Wrap(errors.ErrCodeConfigValidation, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestConfig{}, err
	}

	return config, nil
}

// DefaultBacktestConfig returns a config with conventional defaults.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital:      100000,
		TransactionCostRate: 0.001,
		SlippageRate:        0.0005,
		RiskFreeRate:        0.02,
		RebalanceCadence:    RebalanceNone,
		StartTime:           optional.None[time.Time](),
		EndTime:             optional.None[time.Time](),
	}
}

// GenerateSchema generates a JSON schema for the BacktestConfig.
func (c *BacktestConfig) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "RebalanceCadence") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: AllRebalanceCadences,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for the backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestConfig.
func (c *BacktestConfig) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
