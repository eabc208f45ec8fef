package engine

import (
	"github.com/quantforge/backtest/internal/types"
)

// Order sizing is notional-committing: a BUY spends strength x available
// cash including cost and slippage, so a well-formed signal can never
// overdraw. Anything that would is recorded as a rejected trade.

const minOrderNotional = 1e-9

// executeSignal applies one generator signal to the portfolio state at the
// given bar.
func executeSignal(state *portfolioState, series *types.HistoricalSeries, index int, signal types.Signal, config types.BacktestConfig) {
	switch signal.Type {
	case types.SignalTypeBuy:
		executeBuy(state, series, index, signal, config)
	case types.SignalTypeSell:
		executeSell(state, series, index, signal, config)
	case types.SignalTypeHold:
	}
}

// executeBuy commits strength x cash to the instrument. The committed amount
// covers price, cost, and slippage; a commitment beyond available cash is
// recorded as a rejected trade and leaves the state untouched.
func executeBuy(state *portfolioState, series *types.HistoricalSeries, index int, signal types.Signal, config types.BacktestConfig) {
	bar := series.Bars[index]
	price := bar.Prices[signal.Instrument]

	spend := signal.Strength * state.cash
	if spend <= minOrderNotional {
		return
	}

	costMultiplier := (1 + config.TransactionCostRate) * (1 + config.SlippageRate)
	quantity := spend / (price * costMultiplier)
	fees := spend - quantity*price

	if spend > state.cash+minOrderNotional {
		state.record(types.Trade{
			Instrument: signal.Instrument,
			Symbol:     series.Symbols[signal.Instrument],
			Side:       types.TradeSideLong,
			Status:     types.TradeStatusRejected,
			EntryTime:  bar.Date,
			EntryPrice: price,
			ExitTime:   bar.Date,
			ExitPrice:  price,
			Quantity:   quantity,
			Fees:       0,
			Reason:     signal.Reason,
		})

		return
	}

	state.cash -= spend
	state.addLot(signal.Instrument, quantity, price, fees, bar.Date)
}

// executeSell closes strength x held quantity. A sell against a flat
// instrument is a silent no-op.
func executeSell(state *portfolioState, series *types.HistoricalSeries, index int, signal types.Signal, config types.BacktestConfig) {
	held := state.openLot(signal.Instrument)
	if held == nil || held.quantity <= minOrderNotional {
		return
	}

	closeQuantity := signal.Strength * held.quantity
	if closeQuantity <= minOrderNotional {
		return
	}

	bar := series.Bars[index]
	price := bar.Prices[signal.Instrument]

	notional := closeQuantity * price
	proceeds := notional * (1 - config.TransactionCostRate) * (1 - config.SlippageRate)
	exitFees := notional - proceeds

	entryPrice := held.avgEntry
	entryTime := held.entryTime
	entryFees := state.reduceLot(signal.Instrument, closeQuantity)

	state.cash += proceeds
	state.record(types.Trade{
		Instrument: signal.Instrument,
		Symbol:     series.Symbols[signal.Instrument],
		Side:       types.TradeSideLong,
		Status:     types.TradeStatusExecuted,
		EntryTime:  entryTime,
		EntryPrice: entryPrice,
		ExitTime:   bar.Date,
		ExitPrice:  price,
		Quantity:   closeQuantity,
		Fees:       entryFees + exitFees,
		Reason:     signal.Reason,
	})
}

// rebalance trims and grows open positions toward the target weights at the
// bar's close. Sells run before buys in instrument order so freed cash funds
// the grows; every trade is recorded with reason "rebalance".
func rebalance(state *portfolioState, series *types.HistoricalSeries, index int, weights []float64, config types.BacktestConfig) {
	bar := series.Bars[index]
	total := state.totalValue(bar)

	if total <= minOrderNotional {
		return
	}

	costMultiplier := (1 + config.TransactionCostRate) * (1 + config.SlippageRate)

	// Trim overweight positions first.
	for instrument := 0; instrument < series.Width(); instrument++ {
		price := bar.Prices[instrument]
		targetQuantity := weights[instrument] * total / price
		heldQuantity := state.quantity(instrument)

		if excess := heldQuantity - targetQuantity; excess*price > minOrderNotional {
			strength := excess / heldQuantity
			executeSell(state, series, index, types.Signal{
				Time:       bar.Date,
				Type:       types.SignalTypeSell,
				Strength:   strength,
				Instrument: instrument,
				Reason:     "rebalance",
				Confidence: 1,
			}, config)
		}
	}

	// Grow underweight positions with the freed cash.
	for instrument := 0; instrument < series.Width(); instrument++ {
		price := bar.Prices[instrument]
		targetQuantity := weights[instrument] * total / price
		heldQuantity := state.quantity(instrument)

		shortfall := targetQuantity - heldQuantity
		if shortfall*price <= minOrderNotional {
			continue
		}

		spend := shortfall * price * costMultiplier
		if spend > state.cash {
			spend = state.cash
		}

		if spend <= minOrderNotional || state.cash <= minOrderNotional {
			continue
		}

		executeBuy(state, series, index, types.Signal{
			Time:       bar.Date,
			Type:       types.SignalTypeBuy,
			Strength:   spend / state.cash,
			Instrument: instrument,
			Reason:     "rebalance",
			Confidence: 1,
		}, config)
	}
}

// finalizeOpenLots marks every open lot closed at the final bar so the trade
// ledger is complete. The mark carries no exit cost; only the remaining
// entry fees are attached.
func finalizeOpenLots(state *portfolioState, series *types.HistoricalSeries) {
	bar := series.Bars[series.Len()-1]

	for _, instrument := range state.instruments() {
		held := state.openLot(instrument)
		price := bar.Prices[instrument]

		quantity := held.quantity
		entryFees := state.reduceLot(instrument, quantity)

		state.record(types.Trade{
			Instrument: instrument,
			Symbol:     series.Symbols[instrument],
			Side:       types.TradeSideLong,
			Status:     types.TradeStatusExecuted,
			EntryTime:  held.entryTime,
			EntryPrice: held.avgEntry,
			ExitTime:   bar.Date,
			ExitPrice:  price,
			Quantity:   quantity,
			Fees:       entryFees,
			Reason:     "final mark",
		})
	}
}
