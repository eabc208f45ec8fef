package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

type TradeStatus string

const (
	TradeSideLong  TradeSide = "LONG"
	TradeSideShort TradeSide = "SHORT"

	// TradeStatusExecuted marks a filled order.
	TradeStatusExecuted TradeStatus = "EXECUTED"
	// TradeStatusRejected marks an order that would overdraw cash. Rejections
	// are recorded in the ledger, never surfaced as run failures.
	TradeStatusRejected TradeStatus = "REJECTED"
)

// Trade is one executed (or rejected) position change. Entry price is the
// average raw entry of the closed quantity; fees carry the cost and slippage
// charged on both legs.
type Trade struct {
	ID         string      `yaml:"id"`
	Instrument int         `yaml:"instrument"`
	Symbol     string      `yaml:"symbol"`
	Side       TradeSide   `yaml:"side"`
	Status     TradeStatus `yaml:"status"`
	EntryTime  time.Time   `yaml:"entry_time"`
	EntryPrice float64     `yaml:"entry_price"`
	ExitTime   time.Time   `yaml:"exit_time"`
	ExitPrice  float64     `yaml:"exit_price"`
	Quantity   float64     `yaml:"quantity"`
	Fees       float64     `yaml:"fees"`
	// Reason is the originating signal reason ("golden cross", "rebalance", ...).
	Reason string `yaml:"reason"`
}

// PnL returns the net profit of the trade: (exit - entry) x quantity - fees.
// Computed with decimals so ledger roll-ups do not accumulate float drift.
func (t *Trade) PnL() float64 {
	if t.Status == TradeStatusRejected {
		return 0
	}

	entry := decimal.NewFromFloat(t.EntryPrice)
	exit := decimal.NewFromFloat(t.ExitPrice)
	qty := decimal.NewFromFloat(t.Quantity)
	fees := decimal.NewFromFloat(t.Fees)

	pnl, _ := exit.Sub(entry).Mul(qty).Sub(fees).Float64()

	return pnl
}

// HoldingDays returns the whole trading days the position was held.
func (t *Trade) HoldingDays() int {
	if t.ExitTime.Before(t.EntryTime) {
		return 0
	}

	return int(t.ExitTime.Sub(t.EntryTime).Hours() / 24)
}
