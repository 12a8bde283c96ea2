package backtest

// CostModel converts trade size and holding duration into the three cost
// components charged against gross pnl. Rates are fixed at engine
// construction; zero rates disable the corresponding cost.
type CostModel struct {
	CommissionRate float64 // fraction of notional, per side
	SlippageRate   float64 // per unit of quantity, per side
	DailySwapRate  float64 // per unit of quantity, per day held
}

// Commission returns the commission for a fill at the given price and
// quantity. Round-trip fills are charged for both sides.
func (c CostModel) Commission(price, quantity float64, roundTrip bool) float64 {
	cost := price * quantity * c.CommissionRate
	if roundTrip {
		cost *= 2
	}
	return cost
}

// Slippage returns the slippage charge for the given quantity. Round-trip
// fills are charged for both sides.
func (c CostModel) Slippage(quantity float64, roundTrip bool) float64 {
	cost := quantity * c.SlippageRate
	if roundTrip {
		cost *= 2
	}
	return cost
}

// Swap returns the overnight financing charge for holding the given quantity
// for holdHours.
func (c CostModel) Swap(quantity, holdHours float64) float64 {
	return quantity * c.DailySwapRate * (holdHours / 24)
}

// RoundTrip returns the total cost of a complete open-and-close cycle at the
// given entry price, quantity, and holding duration.
func (c CostModel) RoundTrip(price, quantity, holdHours float64) float64 {
	return c.Commission(price, quantity, true) +
		c.Slippage(quantity, true) +
		c.Swap(quantity, holdHours)
}
