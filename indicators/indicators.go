// Package indicators provides the pure numeric transforms the strategies
// precompute over a session's closing prices. Warmup slots are NaN so
// callers can skip bars where a value is not yet defined.
package indicators

import (
	"fmt"
	"math"
)

// EMA returns the exponential moving average of values with the given
// lookback period. The series is seeded at the first value, so every slot is
// defined.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("ema: period must be positive, got %d", period)
	}
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}

	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out, nil
}

// RSI returns the Wilder-smoothed Relative Strength Index on a 0-100 scale.
// The first slot is NaN because no price change exists yet.
func RSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi: period must be positive, got %d", period)
	}
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}
	out[0] = math.NaN()
	if len(values) == 1 {
		return out, nil
	}

	alpha := 1.0 / float64(period)
	var avgUp, avgDown float64
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		up, down := 0.0, 0.0
		if delta > 0 {
			up = delta
		} else {
			down = -delta
		}

		if i == 1 {
			avgUp, avgDown = up, down
		} else {
			avgUp = up*alpha + avgUp*(1-alpha)
			avgDown = down*alpha + avgDown*(1-alpha)
		}

		switch {
		case avgDown == 0 && avgUp == 0:
			out[i] = math.NaN()
		case avgDown == 0:
			out[i] = 100
		default:
			rs := avgUp / avgDown
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out, nil
}

// Bollinger returns the middle band (rolling mean) and the upper and lower
// bands offset by numStd sample standard deviations. Slots before the window
// fills are NaN.
func Bollinger(values []float64, window int, numStd float64) (middle, upper, lower []float64, err error) {
	if window <= 1 {
		return nil, nil, nil, fmt.Errorf("bollinger: window must be greater than 1, got %d", window)
	}

	middle = make([]float64, len(values))
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))

	for i := range values {
		if i < window-1 {
			middle[i] = math.NaN()
			upper[i] = math.NaN()
			lower[i] = math.NaN()
			continue
		}

		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		mean := sum / float64(window)

		var sq float64
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(window-1))

		middle[i] = mean
		upper[i] = mean + numStd*std
		lower[i] = mean - numStd*std
	}
	return middle, upper, lower, nil
}
