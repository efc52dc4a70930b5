package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"promptgrid/internal/prompt"
	"promptgrid/internal/provider"
	"promptgrid/internal/translator"
)

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

func validationError(message string) requestError {
	return requestError{
		Status:  http.StatusBadRequest,
		Message: message,
		Type:    "invalid_request_error",
	}
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func apiErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, fmt.Sprint(he.Message), "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

// toHTTPError maps input validation failures onto 400 responses. Generation
// failures never reach here: they are carried inside results.
func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	var formatErr *prompt.FormatError
	switch {
	case errors.Is(err, prompt.ErrEmptyProduct),
		errors.Is(err, translator.ErrInvalidParams),
		errors.Is(err, translator.ErrEmptyPrompt):
		return validationError(err.Error())
	case errors.As(err, &formatErr):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: formatErr.Error(),
			Type:    "invalid_request_error",
			Code:    "invalid_template",
		}
	case errors.Is(err, provider.ErrUnknownModel):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "model_not_found",
		}
	}

	return requestError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Type:    "server_error",
	}
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return validationError("request body is required")
		}
		return validationError(fmt.Sprintf("invalid JSON payload: %v", err))
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return validationError("request body must contain a single JSON object")
	}
	return nil
}
