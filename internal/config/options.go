package config

import (
	"fmt"
	"math"
	"slices"
)

// Allowed slider positions.
var (
	TemperatureOptions = tenths(12)
	MaxTokenOptions    = []int{50, 100, 150, 200, 250, 300, 400, 500}
	PenaltyOptions     = tenths(15)
)

func tenths(n int) []float64 {
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, float64(i)/10)
	}
	return out
}

// ValidateParams checks generation parameters against the slider positions.
func ValidateParams(temperature float64, maxTokens int, presence, frequency float64) error {
	if !onStep(temperature, TemperatureOptions) {
		return fmt.Errorf("temperature %v must be between 0.0 and 1.2 in steps of 0.1", temperature)
	}
	if !slices.Contains(MaxTokenOptions, maxTokens) {
		return fmt.Errorf("max tokens %d must be one of %v", maxTokens, MaxTokenOptions)
	}
	if !onStep(presence, PenaltyOptions) {
		return fmt.Errorf("presence penalty %v must be between 0.0 and 1.5 in steps of 0.1", presence)
	}
	if !onStep(frequency, PenaltyOptions) {
		return fmt.Errorf("frequency penalty %v must be between 0.0 and 1.5 in steps of 0.1", frequency)
	}
	return nil
}

func onStep(v float64, options []float64) bool {
	for _, o := range options {
		if math.Abs(v-o) < 1e-9 {
			return true
		}
	}
	return false
}
