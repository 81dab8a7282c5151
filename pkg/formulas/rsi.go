package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateRSI calculates the Relative Strength Index.
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// When the average loss over the trailing window is zero the RSI is 100 by
// convention (no division-by-zero sentinel leaks out). Returns nil if there
// are fewer than length+1 prices.
func CalculateRSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}

	// Zero average loss over the window makes RS divide by zero; the
	// domain convention for pure-gain momentum is RSI=100.
	if !hasLoss(closes[len(closes)-length-1:]) {
		result := 100.0
		return &result
	}

	rsi := talib.Rsi(closes, length)
	if len(rsi) > 0 && !isNaN(rsi[len(rsi)-1]) {
		result := rsi[len(rsi)-1]
		return &result
	}

	return nil
}

// hasLoss reports whether any consecutive close declined over the window.
func hasLoss(window []float64) bool {
	for i := 1; i < len(window); i++ {
		if window[i] < window[i-1] {
			return true
		}
	}
	return false
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
