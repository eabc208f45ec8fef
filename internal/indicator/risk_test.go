package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RiskTestSuite struct {
	suite.Suite
}

func TestRiskSuite(t *testing.T) {
	suite.Run(t, new(RiskTestSuite))
}

func (suite *RiskTestSuite) TestVolatility() {
	tests := []struct {
		name     string
		returns  []float64
		expected float64
	}{
		{
			name:     "empty input returns zero not NaN",
			returns:  []float64{},
			expected: 0,
		},
		{
			name:     "single element returns zero",
			returns:  []float64{0.05},
			expected: 0,
		},
		{
			name:     "flat returns have zero volatility",
			returns:  []float64{0.01, 0.01, 0.01, 0.01},
			expected: 0,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			value := Volatility(tt.returns)
			suite.False(math.IsNaN(value))
			suite.Equal(tt.expected, value)
		})
	}

	// Annualization factor is sqrt(252)
	returns := []float64{0.01, -0.01, 0.01, -0.01}
	suite.InDelta(StdDev(returns)*math.Sqrt(252), Volatility(returns), 1e-12)
}

func (suite *RiskTestSuite) TestMaxDrawdown() {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{
			name:     "empty",
			values:   []float64{},
			expected: 0,
		},
		{
			name:     "monotonic rise has no drawdown",
			values:   []float64{100, 110, 120, 130},
			expected: 0,
		},
		{
			name:     "single dip",
			values:   []float64{100, 120, 90, 110},
			expected: 0.25, // (120-90)/120
		},
		{
			name:     "full collapse approaches 1",
			values:   []float64{100, 1},
			expected: 0.99,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			value := MaxDrawdown(tt.values)
			suite.InDelta(tt.expected, value, 1e-9)
			suite.GreaterOrEqual(value, 0.0)
			suite.LessOrEqual(value, 1.0)
		})
	}
}

func (suite *RiskTestSuite) TestValueAtRisk() {
	suite.Equal(0.0, ValueAtRisk(nil, 0.95))

	returns := []float64{-0.05, 0.01, 0.02, -0.03, 0.04, -0.01, 0.03, 0.02, -0.02, 0.01,
		0.02, -0.04, 0.01, 0.03, -0.01, 0.02, 0.01, -0.02, 0.03, 0.01}

	// floor(0.05 * 20) = 1 -> second worst return
	value := ValueAtRisk(returns, 0.95)
	suite.InDelta(-0.04, value, 1e-9)
}

func (suite *RiskTestSuite) TestExpectedShortfall() {
	suite.Equal(0.0, ExpectedShortfall(nil, 0.95))

	returns := []float64{-0.05, 0.01, 0.02, -0.03, 0.04, -0.01, 0.03, 0.02, -0.02, 0.01,
		0.02, -0.04, 0.01, 0.03, -0.01, 0.02, 0.01, -0.02, 0.03, 0.01}

	// Mean of returns <= VaR threshold (-0.04): {-0.05, -0.04}
	value := ExpectedShortfall(returns, 0.95)
	suite.InDelta(-0.045, value, 1e-9)

	// The tail mean is never above the threshold
	suite.LessOrEqual(value, ValueAtRisk(returns, 0.95))
}
