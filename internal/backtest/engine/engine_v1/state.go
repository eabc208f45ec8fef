package engine

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/quantforge/backtest/internal/types"
)

// lot is an open position in one instrument. Entry price and fees are
// averaged across adds so a partial close can prorate both.
type lot struct {
	quantity  float64
	avgEntry  float64
	entryFees float64
	entryTime time.Time
}

// portfolioState is the mutable arena of one replay: cash, open lots, and
// the growing trade ledger. It is owned by a single run and never shared.
type portfolioState struct {
	cash   float64
	run    uuid.UUID
	lots   map[int]*lot
	trades []types.Trade
}

func newPortfolioState(initialCapital float64, run uuid.UUID) *portfolioState {
	return &portfolioState{
		cash:   initialCapital,
		run:    run,
		lots:   make(map[int]*lot),
		trades: nil,
	}
}

// openLot returns the lot for the instrument, or nil when flat.
func (s *portfolioState) openLot(instrument int) *lot {
	return s.lots[instrument]
}

// quantity returns the held quantity for the instrument, 0 when flat.
func (s *portfolioState) quantity(instrument int) float64 {
	if held, ok := s.lots[instrument]; ok {
		return held.quantity
	}

	return 0
}

// instruments returns the open instrument indexes in ascending order.
// Iteration over the lots map must always go through this so a replay is
// deterministic.
func (s *portfolioState) instruments() []int {
	open := make([]int, 0, len(s.lots))
	for instrument := range s.lots {
		open = append(open, instrument)
	}

	sort.Ints(open)

	return open
}

// totalValue marks the portfolio to the given bar: cash plus quantity times
// close for every open lot.
func (s *portfolioState) totalValue(bar types.Bar) float64 {
	value := s.cash
	for _, instrument := range s.instruments() {
		value += s.lots[instrument].quantity * bar.Prices[instrument]
	}

	return value
}

// positions returns a copy of the open quantities keyed by instrument.
func (s *portfolioState) positions() map[int]float64 {
	held := make(map[int]float64, len(s.lots))
	for instrument, openLot := range s.lots {
		held[instrument] = openLot.quantity
	}

	return held
}

// addLot merges a fill into the instrument's open lot, averaging the entry
// price by quantity.
func (s *portfolioState) addLot(instrument int, quantity, price, fees float64, entryTime time.Time) {
	held, ok := s.lots[instrument]
	if !ok {
		s.lots[instrument] = &lot{
			quantity:  quantity,
			avgEntry:  price,
			entryFees: fees,
			entryTime: entryTime,
		}

		return
	}

	total := held.quantity + quantity
	held.avgEntry = (held.avgEntry*held.quantity + price*quantity) / total
	held.quantity = total
	held.entryFees += fees
}

// reduceLot removes quantity from the instrument's lot and returns the
// prorated share of the entry fees. The lot is dropped when fully closed.
func (s *portfolioState) reduceLot(instrument int, quantity float64) float64 {
	held := s.lots[instrument]
	share := held.entryFees * (quantity / held.quantity)

	held.quantity -= quantity
	held.entryFees -= share

	if held.quantity <= 1e-12 {
		delete(s.lots, instrument)
	}

	return share
}

// record appends the trade to the ledger, stamping an ID derived from the
// run identity and the trade's ledger position. Identical replays produce
// identical ledgers, IDs included.
func (s *portfolioState) record(trade types.Trade) {
	trade.ID = uuid.NewSHA1(s.run, []byte("trade/"+strconv.Itoa(len(s.trades)))).String()
	s.trades = append(s.trades, trade)
}
