package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"promptgrid/internal/config"
	"promptgrid/internal/generator"
	"promptgrid/internal/models"
	"promptgrid/internal/prompt"
	"promptgrid/internal/translator"
)

const pageTemplate = "index.html"

type pageData struct {
	Form         formValues
	Models       []models.Model
	Temperatures []float64
	MaxTokens    []int
	Penalties    []float64
	Error        string
	Mode         string
	Prompt       string
	Result       *models.Result
	Rows         []models.Row
}

// formValues mirrors the inputs of the page so a submission can be re-rendered.
type formValues struct {
	Product          string
	Style            string
	Template         string
	Model            string
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	Stop             string

	PinTemperature bool
	PinMaxTokens   bool
	PinPresence    bool
	PinFrequency   bool
	PinStop        bool
}

func formDefaults(f config.FormConfig) formValues {
	return formValues{
		Product:          f.Product,
		Style:            f.Style,
		Template:         f.Template,
		Model:            f.Model,
		Temperature:      f.Temperature,
		MaxTokens:        f.MaxTokens,
		PresencePenalty:  f.PresencePenalty,
		FrequencyPenalty: f.FrequencyPenalty,
		Stop:             f.Stop,
	}
}

func (f formValues) input() translator.Input {
	return translator.Input{
		Product:  f.Product,
		Style:    f.Style,
		Template: f.Template,
		Model:    f.Model,
		Params: models.Params{
			Temperature:      f.Temperature,
			MaxTokens:        f.MaxTokens,
			PresencePenalty:  f.PresencePenalty,
			FrequencyPenalty: f.FrequencyPenalty,
		},
		Stop: prompt.ParseStopSequences(f.Stop),
	}
}

func (f formValues) sweep() generator.Sweep {
	var sw generator.Sweep
	if f.PinTemperature {
		sw.Temperature = &f.Temperature
	}
	if f.PinMaxTokens {
		sw.MaxTokens = &f.MaxTokens
	}
	if f.PinPresence {
		sw.PresencePenalty = &f.PresencePenalty
	}
	if f.PinFrequency {
		sw.FrequencyPenalty = &f.FrequencyPenalty
	}
	if f.PinStop {
		sw.Stop = f.Stop
	}
	return sw
}

// formMode selects which numeric fields a submission must parse.
type formMode int

const (
	// formSingle parses every slider.
	formSingle formMode = iota
	// formGrid ignores the sliders: the grid runs fixed parameters.
	formGrid
	// formSweep parses only the sliders pinned for the sweep.
	formSweep
)

func (s *Server) decodeForm(c echo.Context, mode formMode) (formValues, error) {
	f := formDefaults(s.cfg.Form)

	params, err := c.FormParams()
	if err != nil {
		return f, validationError(fmt.Sprintf("invalid form submission: %v", err))
	}

	wanted := func(key string) bool {
		switch mode {
		case formSingle:
			return true
		case formSweep:
			return params.Get("pin_"+key) != ""
		default:
			return false
		}
	}

	text := func(key string, dst *string) {
		if _, ok := params[key]; ok {
			*dst = params.Get(key)
		}
	}
	text("product", &f.Product)
	text("style", &f.Style)
	text("template", &f.Template)
	text("model", &f.Model)
	text("stop", &f.Stop)

	var errs []error
	number := func(key string, dst *float64) {
		raw := strings.TrimSpace(params.Get(key))
		if raw == "" || !wanted(key) {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a number", strings.ReplaceAll(key, "_", " ")))
			return
		}
		*dst = v
	}
	number("temperature", &f.Temperature)
	number("presence_penalty", &f.PresencePenalty)
	number("frequency_penalty", &f.FrequencyPenalty)

	if raw := strings.TrimSpace(params.Get("max_tokens")); raw != "" && wanted("max_tokens") {
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, errors.New("max tokens must be an integer"))
		} else {
			f.MaxTokens = v
		}
	}

	f.PinTemperature = params.Get("pin_temperature") != ""
	f.PinMaxTokens = params.Get("pin_max_tokens") != ""
	f.PinPresence = params.Get("pin_presence_penalty") != ""
	f.PinFrequency = params.Get("pin_frequency_penalty") != ""
	f.PinStop = params.Get("pin_stop") != ""

	if err := errors.Join(errs...); err != nil {
		return f, validationError(err.Error())
	}
	return f, nil
}

func (s *Server) newPage(f formValues) *pageData {
	return &pageData{
		Form:         f,
		Models:       s.registry.Models(),
		Temperatures: config.TemperatureOptions,
		MaxTokens:    config.MaxTokenOptions,
		Penalties:    config.PenaltyOptions,
	}
}

func (s *Server) renderInvalid(c echo.Context, page *pageData, err error) error {
	status := http.StatusBadRequest
	var reqErr requestError
	if errors.As(toHTTPError(err), &reqErr) {
		status = reqErr.Status
		page.Error = reqErr.Message
	}
	return c.Render(status, pageTemplate, page)
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, pageTemplate, s.newPage(formDefaults(s.cfg.Form)))
}

func (s *Server) handleGeneratePage(c echo.Context) error {
	f, err := s.decodeForm(c, formSingle)
	page := s.newPage(f)
	if err != nil {
		return s.renderInvalid(c, page, err)
	}

	j, err := s.prepare(f.input(), true)
	if err != nil {
		return s.renderInvalid(c, page, err)
	}

	result := s.generator.Generate(c.Request().Context(), j.Request())
	page.Mode = "single"
	page.Prompt = j.User
	page.Result = &result
	return c.Render(http.StatusOK, pageTemplate, page)
}

func (s *Server) handleGridPage(c echo.Context) error {
	f, err := s.decodeForm(c, formGrid)
	page := s.newPage(f)
	if err != nil {
		return s.renderInvalid(c, page, err)
	}

	j, err := s.prepare(f.input(), false)
	if err != nil {
		return s.renderInvalid(c, page, err)
	}

	page.Mode = "grid"
	page.Prompt = j.User
	page.Rows = s.generator.Grid(c.Request().Context(), j.Model, j.System, j.User)
	return c.Render(http.StatusOK, pageTemplate, page)
}

func (s *Server) handleSweepPage(c echo.Context) error {
	f, err := s.decodeForm(c, formSweep)
	page := s.newPage(f)
	if err != nil {
		return s.renderInvalid(c, page, err)
	}

	sweep := f.sweep()
	if err := translator.ValidatePins(sweep); err != nil {
		return s.renderInvalid(c, page, err)
	}

	j, err := s.prepare(f.input(), false)
	if err != nil {
		return s.renderInvalid(c, page, err)
	}

	page.Mode = "sweep"
	page.Prompt = j.User
	page.Rows = s.generator.Sweep(c.Request().Context(), j.Model, j.System, j.User, sweep)
	return c.Render(http.StatusOK, pageTemplate, page)
}
