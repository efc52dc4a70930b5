package models

import "strings"

// ErrorPrefix precedes the description of a failed generation when it is
// rendered as display text.
const ErrorPrefix = "Error: "

// Result is the outcome of one completion call: either generated text or a
// failure description. The zero value is a successful empty completion.
type Result struct {
	text   string
	err    string
	failed bool
}

// Success wraps generated text.
func Success(text string) Result {
	return Result{text: text}
}

// Failure wraps a failure description.
func Failure(description string) Result {
	description = strings.TrimSpace(description)
	if description == "" {
		description = "unknown error"
	}
	return Result{err: description, failed: true}
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return !r.failed
}

// Text returns the generated text, empty for failures.
func (r Result) Text() string {
	return r.text
}

// Reason returns the failure description, empty for successes.
func (r Result) Reason() string {
	return r.err
}

// String renders the result for display.
func (r Result) String() string {
	if r.failed {
		return ErrorPrefix + r.err
	}
	return r.text
}
