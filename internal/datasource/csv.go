// Package datasource loads historical market data into the engine's series
// representation.
package datasource

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantforge/backtest/internal/types"
	"github.com/quantforge/backtest/pkg/errors"
)

const dateLayout = "2006-01-02"

// LoadCSV reads a daily multi-instrument CSV into a HistoricalSeries. The
// expected header is "date" followed by "<symbol>_close" and
// "<symbol>_volume" column pairs. The context cancels the load between rows;
// the returned series is fully validated.
func LoadCSV(ctx context.Context, path string) (*types.HistoricalSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataReadFailed, err, "failed to open %s", path)
	}
	defer file.Close()

	series, err := ParseCSV(ctx, file)
	if err != nil {
		return nil, err
	}

	return series, nil
}

// ParseCSV parses CSV content from a reader. Split from LoadCSV so tests and
// in-memory sources skip the filesystem.
func ParseCSV(ctx context.Context, reader io.Reader) (*types.HistoricalSeries, error) {
	records := csv.NewReader(reader)
	records.TrimLeadingSpace = true

	header, err := records.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to read CSV header", err)
	}

	symbols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	series := &types.HistoricalSeries{Symbols: symbols}

	for row := 1; ; row++ {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeDataReadFailed, "data load canceled", ctx.Err())
		}

		record, err := records.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to read CSV row %d", row)
		}

		bar, err := parseRow(record, row, len(symbols))
		if err != nil {
			return nil, err
		}

		series.Bars = append(series.Bars, bar)
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}

	return series, nil
}

// parseHeader extracts the symbol universe from the column names. Column
// pairs must be adjacent and ordered close-then-volume per symbol.
func parseHeader(header []string) ([]string, error) {
	if len(header) < 3 || !strings.EqualFold(header[0], "date") {
		return nil, errors.New(errors.ErrCodeDataParseFailed,
			`CSV header must start with "date" and carry at least one symbol column pair`)
	}

	if (len(header)-1)%2 != 0 {
		return nil, errors.Newf(errors.ErrCodeDataParseFailed,
			"CSV header has %d symbol columns, expected close/volume pairs", len(header)-1)
	}

	symbols := make([]string, 0, (len(header)-1)/2)

	for i := 1; i < len(header); i += 2 {
		closeName, hasClose := strings.CutSuffix(header[i], "_close")
		volumeName, hasVolume := strings.CutSuffix(header[i+1], "_volume")

		if !hasClose || !hasVolume || closeName == "" || closeName != volumeName {
			return nil, errors.Newf(errors.ErrCodeDataParseFailed,
				"CSV columns %q and %q are not a <symbol>_close/<symbol>_volume pair", header[i], header[i+1])
		}

		symbols = append(symbols, closeName)
	}

	return symbols, nil
}

func parseRow(record []string, row, width int) (types.Bar, error) {
	if len(record) != 1+2*width {
		return types.Bar{}, errors.Newf(errors.ErrCodeDataIntegrity,
			"CSV row %d has %d fields, expected %d", row, len(record), 1+2*width)
	}

	date, err := time.Parse(dateLayout, record[0])
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "CSV row %d has a malformed date %q", row, record[0])
	}

	bar := types.Bar{
		Date:    date,
		Prices:  make([]float64, width),
		Volumes: make([]float64, width),
	}

	for i := 0; i < width; i++ {
		price, err := strconv.ParseFloat(record[1+2*i], 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "CSV row %d has a malformed price %q", row, record[1+2*i])
		}

		volume, err := strconv.ParseFloat(record[2+2*i], 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "CSV row %d has a malformed volume %q", row, record[2+2*i])
		}

		bar.Prices[i] = price
		bar.Volumes[i] = volume
	}

	return bar, nil
}
