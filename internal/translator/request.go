package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"promptgrid/internal/config"
	"promptgrid/internal/generator"
	"promptgrid/internal/models"
	"promptgrid/internal/prompt"
)

var errUnsupportedStop = errors.New("stop must be a string or an array of strings")

// Input is a decoded form submission. Defaults have been applied but nothing
// has been validated yet.
type Input struct {
	Product  string
	Style    string
	Template string
	Model    string
	Params   models.Params
	Stop     []string
}

// GenerateRequest models the JSON body shared by the generate, grid and sweep
// endpoints. Absent fields fall back to the configured form defaults.
type GenerateRequest struct {
	Product          *string
	Style            *string
	Template         *string
	Model            string
	Temperature      *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	Stop             []string
}

// UnmarshalJSON accepts stop as either "a, b" or ["a", "b"].
func (r *GenerateRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Product          *string         `json:"product"`
		Style            *string         `json:"style"`
		Template         *string         `json:"template"`
		Model            string          `json:"model"`
		Temperature      *float64        `json:"temperature"`
		MaxTokens        *int            `json:"max_tokens"`
		PresencePenalty  *float64        `json:"presence_penalty"`
		FrequencyPenalty *float64        `json:"frequency_penalty"`
		Stop             json.RawMessage `json:"stop"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode generate request: %w", err)
	}

	stop, err := parseStop(raw.Stop)
	if err != nil {
		return err
	}

	r.Product = raw.Product
	r.Style = raw.Style
	r.Template = raw.Template
	r.Model = strings.TrimSpace(raw.Model)
	r.Temperature = raw.Temperature
	r.MaxTokens = raw.MaxTokens
	r.PresencePenalty = raw.PresencePenalty
	r.FrequencyPenalty = raw.FrequencyPenalty
	r.Stop = stop
	return nil
}

// ToInput fills absent fields from defaults.
func (r GenerateRequest) ToInput(defaults config.FormConfig) Input {
	in := Input{
		Product:  valueOr(r.Product, defaults.Product),
		Style:    valueOr(r.Style, defaults.Style),
		Template: valueOr(r.Template, defaults.Template),
		Model:    r.Model,
		Params: models.Params{
			Temperature:      valueOr(r.Temperature, defaults.Temperature),
			MaxTokens:        valueOr(r.MaxTokens, defaults.MaxTokens),
			PresencePenalty:  valueOr(r.PresencePenalty, defaults.PresencePenalty),
			FrequencyPenalty: valueOr(r.FrequencyPenalty, defaults.FrequencyPenalty),
		},
		Stop: r.Stop,
	}
	if in.Model == "" {
		in.Model = defaults.Model
	}
	return in
}

// SweepRequest is a GenerateRequest plus the parameters to pin.
type SweepRequest struct {
	GenerateRequest
	Pin PinRequest
}

// PinRequest lists pinned sweep values. Absent fields are swept.
type PinRequest struct {
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	PresencePenalty  *float64 `json:"presence_penalty"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	Stop             string   `json:"stop"`
}

// UnmarshalJSON decodes the embedded request and the "pin" object.
func (r *SweepRequest) UnmarshalJSON(data []byte) error {
	if err := r.GenerateRequest.UnmarshalJSON(data); err != nil {
		return err
	}

	var raw struct {
		Pin PinRequest `json:"pin"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode sweep request: %w", err)
	}
	r.Pin = raw.Pin
	return nil
}

// ToSweep converts the pinned values.
func (p PinRequest) ToSweep() generator.Sweep {
	return generator.Sweep{
		Temperature:      p.Temperature,
		MaxTokens:        p.MaxTokens,
		PresencePenalty:  p.PresencePenalty,
		FrequencyPenalty: p.FrequencyPenalty,
		Stop:             p.Stop,
	}
}

func parseStop(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return prompt.ParseStopSequences(single), nil
	}

	var multiple []string
	if err := json.Unmarshal(raw, &multiple); err == nil {
		var stop []string
		for _, s := range multiple {
			if s = strings.TrimSpace(s); s != "" {
				stop = append(stop, s)
			}
		}
		return stop, nil
	}

	return nil, errUnsupportedStop
}

func valueOr[T any](ptr *T, fallback T) T {
	if ptr == nil {
		return fallback
	}
	return *ptr
}
