package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"promptgrid/internal/translator"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"models":  translator.FromModels(s.registry.Models()),
		"default": s.cfg.Form.Model,
	})
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req translator.GenerateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	j, err := s.prepare(req.ToInput(s.cfg.Form), true)
	if err != nil {
		return toHTTPError(err)
	}

	result := s.generator.Generate(c.Request().Context(), j.Request())
	return c.JSON(http.StatusOK, translator.GenerateResponse{
		Model:  j.Model,
		Prompt: j.User,
		Result: translator.FromResult(result),
	})
}

func (s *Server) handleGrid(c echo.Context) error {
	var req translator.GenerateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	j, err := s.prepare(req.ToInput(s.cfg.Form), false)
	if err != nil {
		return toHTTPError(err)
	}

	rows := s.generator.Grid(c.Request().Context(), j.Model, j.System, j.User)
	return c.JSON(http.StatusOK, translator.FromRows(j.Model, j.User, rows))
}

func (s *Server) handleSweep(c echo.Context) error {
	var req translator.SweepRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	sweep := req.Pin.ToSweep()
	if err := translator.ValidatePins(sweep); err != nil {
		return toHTTPError(err)
	}

	j, err := s.prepare(req.ToInput(s.cfg.Form), false)
	if err != nil {
		return toHTTPError(err)
	}

	rows := s.generator.Sweep(c.Request().Context(), j.Model, j.System, j.User, sweep)
	return c.JSON(http.StatusOK, translator.FromRows(j.Model, j.User, rows))
}
