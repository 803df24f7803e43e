package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateRSI calculates the Relative Strength Index
//
// RSI Formula:
//   RSI = 100 - (100 / (1 + RS))
//   where RS = Average Gain / Average Loss over N periods
//
// Returns the current RSI value (0-100) or nil if insufficient data.
func CalculateRSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}

	rsi := talib.Rsi(closes, length)

	if len(rsi) > 0 && !isNaN(rsi[len(rsi)-1]) {
		result := rsi[len(rsi)-1]
		return &result
	}

	return nil
}

// CalculateSMA returns the latest simple moving average over the period, or
// nil if insufficient data.
func CalculateSMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}

	sma := talib.Sma(closes, period)

	if len(sma) > 0 && !isNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// CalculateMACD returns the latest MACD line and signal line values using the
// conventional 12/26/9 periods, or nil if insufficient data.
func CalculateMACD(closes []float64) (macd *float64, signal *float64) {
	if len(closes) < 35 {
		return nil, nil
	}

	macdLine, signalLine, _ := talib.Macd(closes, 12, 26, 9)

	if n := len(macdLine); n > 0 && !isNaN(macdLine[n-1]) && !isNaN(signalLine[n-1]) {
		m := macdLine[n-1]
		s := signalLine[n-1]
		return &m, &s
	}

	return nil, nil
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
