package translator

import (
	"errors"
	"fmt"
	"strings"

	"promptgrid/internal/config"
	"promptgrid/internal/generator"
	"promptgrid/internal/models"
	"promptgrid/internal/prompt"
	"promptgrid/internal/provider"
)

var (
	// ErrInvalidParams reports a parameter outside the slider positions.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrEmptyPrompt reports a template that rendered to whitespace.
	ErrEmptyPrompt = errors.New("the description template produced an empty prompt")
)

// Job is a validated input ready to be sent to the generator.
type Job struct {
	Model  string
	System string
	User   string
	Params models.Params
	Stop   []string
}

// Request builds the completion request for a single run.
func (j Job) Request() models.Request {
	return models.Request{
		Model:    j.Model,
		Messages: prompt.BuildMessages(j.System, j.User),
		Params:   j.Params,
		Stop:     j.Stop,
	}
}

// PrepareOptions controls Prepare.
type PrepareOptions struct {
	// CheckParams validates Params against the slider positions. Grid and
	// sweep runs ignore the single-run parameters and leave it off.
	CheckParams bool
	Strict      bool
}

// Prepare validates in and renders the description template. Nothing here
// talks to the provider: every failure aborts before a completion call.
func Prepare(in Input, registry *provider.Registry, opts PrepareOptions) (Job, error) {
	if err := prompt.ValidateProduct(in.Product); err != nil {
		return Job{}, err
	}

	model, err := registry.LookupModel(in.Model)
	if err != nil {
		return Job{}, err
	}

	if opts.CheckParams {
		p := in.Params
		if err := config.ValidateParams(p.Temperature, p.MaxTokens, p.PresencePenalty, p.FrequencyPenalty); err != nil {
			return Job{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}

	user, err := prompt.Render(in.Template, in.Product, prompt.WithStrict(opts.Strict))
	if err != nil {
		return Job{}, err
	}
	if strings.TrimSpace(user) == "" {
		return Job{}, ErrEmptyPrompt
	}

	return Job{
		Model:  model.ID,
		System: in.Style,
		User:   user,
		Params: in.Params,
		Stop:   in.Stop,
	}, nil
}

// ValidatePins checks pinned sweep values against the slider positions.
func ValidatePins(sw generator.Sweep) error {
	err := config.ValidateParams(
		valueOr(sw.Temperature, generator.SweepTemperatures[0]),
		valueOr(sw.MaxTokens, generator.SweepMaxTokens[0]),
		valueOr(sw.PresencePenalty, generator.SweepPresencePenalties[0]),
		valueOr(sw.FrequencyPenalty, generator.SweepFrequencyPenalties[0]),
	)
	if err != nil {
		return fmt.Errorf("%w: pinned %v", ErrInvalidParams, err)
	}
	return nil
}
