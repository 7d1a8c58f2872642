package indicators

import "math"

// NearestStrike rounds a price to the nearest strike increment. Index
// options trade in fixed steps (50 points for NIFTY).
func NearestStrike(price float64, step int) int {
	if step <= 0 {
		return int(math.Round(price))
	}
	return int(math.Round(price/float64(step))) * step
}
