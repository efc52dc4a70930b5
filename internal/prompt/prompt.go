// Package prompt turns form input into chat messages and stop sequences.
package prompt

import (
	"errors"
	"strings"

	"promptgrid/internal/models"
)

// ErrEmptyProduct is returned when the product name is blank.
var ErrEmptyProduct = errors.New("please enter a product name")

// BuildMessages returns the message list for one request. The system entry is
// present only when system is non-blank; the user entry is always last and
// carries user verbatim.
func BuildMessages(system, user string) []models.Message {
	messages := make([]models.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: system})
	}
	return append(messages, models.Message{Role: models.RoleUser, Content: user})
}

// ParseStopSequences splits a comma-separated list into trimmed, non-empty
// stop sequences. It returns nil when nothing remains.
func ParseStopSequences(raw string) []string {
	var stop []string
	for _, segment := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(segment); s != "" {
			stop = append(stop, s)
		}
	}
	return stop
}

// FormatStopSequences is the inverse of ParseStopSequences for display.
func FormatStopSequences(stop []string) string {
	return strings.Join(stop, ", ")
}

// ValidateProduct rejects blank product names.
func ValidateProduct(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyProduct
	}
	return nil
}
