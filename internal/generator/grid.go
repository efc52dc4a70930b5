package generator

import "promptgrid/internal/models"

// DefaultGrid is the fixed comparison table: temperature varies first, then
// the presence and frequency penalties. Order is significant.
var DefaultGrid = [5]models.Params{
	{Temperature: 0.0, MaxTokens: 50, PresencePenalty: 0.0, FrequencyPenalty: 0.0},
	{Temperature: 0.7, MaxTokens: 150, PresencePenalty: 0.0, FrequencyPenalty: 0.0},
	{Temperature: 1.2, MaxTokens: 300, PresencePenalty: 0.0, FrequencyPenalty: 0.0},
	{Temperature: 0.7, MaxTokens: 150, PresencePenalty: 1.5, FrequencyPenalty: 0.0},
	{Temperature: 0.7, MaxTokens: 150, PresencePenalty: 0.0, FrequencyPenalty: 1.5},
}

// Value sets a sweep uses for parameters that are not pinned.
var (
	SweepTemperatures       = []float64{0.0, 0.7, 1.2}
	SweepMaxTokens          = []int{50, 150, 300}
	SweepPresencePenalties  = []float64{0.0, 1.5}
	SweepFrequencyPenalties = []float64{0.0, 1.5}
)

// Sweep pins some parameters and expands the others over the sweep value sets.
type Sweep struct {
	Temperature      *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	// Stop is a raw comma-separated stop list applied to every row.
	Stop string
}

// Combinations returns the cartesian product of the pinned or default values,
// nested temperature > max tokens > presence > frequency.
func (s Sweep) Combinations() []models.Params {
	temps := pinnedOr(s.Temperature, SweepTemperatures)
	tokens := pinnedOr(s.MaxTokens, SweepMaxTokens)
	presence := pinnedOr(s.PresencePenalty, SweepPresencePenalties)
	frequency := pinnedOr(s.FrequencyPenalty, SweepFrequencyPenalties)

	out := make([]models.Params, 0, len(temps)*len(tokens)*len(presence)*len(frequency))
	for _, t := range temps {
		for _, n := range tokens {
			for _, p := range presence {
				for _, f := range frequency {
					out = append(out, models.Params{
						Temperature:      t,
						MaxTokens:        n,
						PresencePenalty:  p,
						FrequencyPenalty: f,
					})
				}
			}
		}
	}
	return out
}

func pinnedOr[T any](pinned *T, defaults []T) []T {
	if pinned != nil {
		return []T{*pinned}
	}
	return defaults
}
