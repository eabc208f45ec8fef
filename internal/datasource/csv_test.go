package datasource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quantforge/backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type CSVTestSuite struct {
	suite.Suite
}

func TestCSVSuite(t *testing.T) {
	suite.Run(t, new(CSVTestSuite))
}

const validCSV = `date,AAPL_close,AAPL_volume,MSFT_close,MSFT_volume
2022-01-03,182.01,104487900,334.75,28865100
2022-01-04,179.70,99310400,329.01,32674300
2022-01-05,174.92,94537600,316.38,40054300
`

func (suite *CSVTestSuite) TestParseValidFile() {
	series, err := ParseCSV(context.Background(), strings.NewReader(validCSV))
	suite.Require().NoError(err)

	suite.Equal([]string{"AAPL", "MSFT"}, series.Symbols)
	suite.Equal(3, series.Len())
	suite.InDelta(182.01, series.Bars[0].Prices[0], 1e-9)
	suite.InDelta(316.38, series.Bars[2].Prices[1], 1e-9)
	suite.InDelta(28865100, series.Bars[0].Volumes[1], 1e-9)
}

func (suite *CSVTestSuite) TestLoadFromDisk() {
	path := filepath.Join(suite.T().TempDir(), "prices.csv")
	suite.Require().NoError(os.WriteFile(path, []byte(validCSV), 0644))

	series, err := LoadCSV(context.Background(), path)
	suite.Require().NoError(err)
	suite.Equal(3, series.Len())
}

func (suite *CSVTestSuite) TestMissingFile() {
	_, err := LoadCSV(context.Background(), filepath.Join(suite.T().TempDir(), "absent.csv"))
	suite.True(errors.HasCode(err, errors.ErrCodeDataReadFailed))
}

func (suite *CSVTestSuite) TestHeaderValidation() {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing date column", header: "AAPL_close,AAPL_volume"},
		{name: "odd column count", header: "date,AAPL_close,AAPL_volume,MSFT_close"},
		{name: "mismatched pair", header: "date,AAPL_close,MSFT_volume"},
		{name: "wrong suffix order", header: "date,AAPL_volume,AAPL_close"},
	}

	for _, test := range tests {
		suite.Run(test.name, func() {
			content := test.header + "\n2022-01-03,1,1\n"

			_, err := ParseCSV(context.Background(), strings.NewReader(content))
			suite.True(errors.HasCode(err, errors.ErrCodeDataParseFailed))
		})
	}
}

func (suite *CSVTestSuite) TestMalformedRows() {
	tests := []struct {
		name string
		row  string
		code errors.ErrorCode
	}{
		{name: "bad date", row: "03/01/2022,182.01,104487900", code: errors.ErrCodeDataParseFailed},
		{name: "bad price", row: "2022-01-03,not-a-number,104487900", code: errors.ErrCodeDataParseFailed},
		{name: "bad volume", row: "2022-01-03,182.01,n/a", code: errors.ErrCodeDataParseFailed},
		{name: "negative price", row: "2022-01-03,-5,104487900", code: errors.ErrCodeDataIntegrity},
	}

	for _, test := range tests {
		suite.Run(test.name, func() {
			content := "date,AAPL_close,AAPL_volume\n" + test.row + "\n"

			_, err := ParseCSV(context.Background(), strings.NewReader(content))
			suite.True(errors.HasCode(err, test.code), "got %v", err)
		})
	}
}

func (suite *CSVTestSuite) TestOutOfOrderDates() {
	content := "date,AAPL_close,AAPL_volume\n" +
		"2022-01-04,180,1000\n" +
		"2022-01-03,182,1000\n"

	_, err := ParseCSV(context.Background(), strings.NewReader(content))
	suite.True(errors.HasCode(err, errors.ErrCodeDataIntegrity))
}

func (suite *CSVTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseCSV(ctx, strings.NewReader(validCSV))
	suite.True(errors.HasCode(err, errors.ErrCodeDataReadFailed))
}
