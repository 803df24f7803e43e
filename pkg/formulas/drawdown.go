package formulas

// CalculateMaxDrawdown calculates the maximum drawdown from a price series
//
// Drawdown Formula:
//   Drawdown = (Peak Value - Current Value) / Peak Value
//   Max Drawdown = Maximum of all drawdowns
//
// Returns the maximum drawdown as a positive fraction (0.25 = 25% loss from
// peak) or nil when fewer than two prices exist.
func CalculateMaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}

		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// CalculateMomentum calculates price momentum over a period
// Returns percentage change over the period
func CalculateMomentum(prices []float64, days int) *float64 {
	if len(prices) < days+1 {
		return nil
	}

	startPrice := prices[len(prices)-days-1]
	endPrice := prices[len(prices)-1]

	if startPrice == 0 {
		return nil
	}

	momentum := (endPrice - startPrice) / startPrice
	return &momentum
}

// CalculateVolatility calculates annualized volatility from daily prices
// Returns annualized standard deviation of returns
func CalculateVolatility(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := CalculateReturns(prices)
	volatility := AnnualizedVolatility(returns)

	return &volatility
}

// Calculate52WeekHigh finds the 52-week high price over the last 252 bars.
func Calculate52WeekHigh(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}

	startIdx := 0
	if len(prices) > 252 {
		startIdx = len(prices) - 252
	}

	relevant := prices[startIdx:]
	high := relevant[0]

	for _, price := range relevant {
		if price > high {
			high = price
		}
	}

	return &high
}

// CalculateDistanceFrom52WeekHigh calculates how far below the 52-week high
// the current price is. Positive when below the high (0.20 = 20% below).
func CalculateDistanceFrom52WeekHigh(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}

	high := Calculate52WeekHigh(prices)
	if high == nil || *high == 0 {
		return nil
	}

	currentPrice := prices[len(prices)-1]
	distance := (*high - currentPrice) / *high

	return &distance
}
