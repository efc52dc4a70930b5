package prompt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Placeholder is the only field name a description template may reference.
const Placeholder = "product"

var (
	// ErrUnknownPlaceholder reports a field other than {product}.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	// ErrMalformedTemplate reports unbalanced braces.
	ErrMalformedTemplate = errors.New("malformed template")
	// ErrInvalidFormatSpec reports a conversion or format spec that cannot
	// be applied to a string.
	ErrInvalidFormatSpec = errors.New("invalid format specifier")
)

// FormatError describes why a template could not be rendered.
type FormatError struct {
	Field  string
	Detail string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Field != "" || errors.Is(e.Err, ErrUnknownPlaceholder) {
		return fmt.Sprintf("template references %q: %s", "{"+e.Field+"}", e.Detail)
	}
	return fmt.Sprintf("template is malformed: %s", e.Detail)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

type renderOptions struct {
	relaxed bool
}

// Option adjusts Render.
type Option func(*renderOptions)

// WithRelaxed leaves unknown placeholders and stray braces in the output
// instead of failing.
func WithRelaxed() Option {
	return func(o *renderOptions) {
		o.relaxed = true
	}
}

// WithStrict selects strict or relaxed rendering from a flag.
func WithStrict(strict bool) Option {
	return func(o *renderOptions) {
		o.relaxed = !strict
	}
}

// Fields are compiled to these tags for fasttemplate. NUL bytes are removed
// from literal text, so neither tag can occur there.
const (
	fieldStart = "\x00{"
	fieldEnd   = "}\x00"
)

// Render substitutes product for every {product} field in tmpl, following
// str.format: doubled braces are literal braces, and a field may carry a
// !s, !r or !a conversion and a string format spec such as {product:>20}.
// In strict mode any other field, a positional {} field or an unbalanced
// brace yields a *FormatError.
func Render(tmpl, product string, opts ...Option) (string, error) {
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}

	segments, err := parseTemplate(tmpl, o.relaxed)
	if err != nil {
		return "", err
	}

	product = strings.ReplaceAll(product, "\x00", "")

	var (
		compiled strings.Builder
		values   []string
	)
	for _, seg := range segments {
		if seg.field == nil {
			compiled.WriteString(strings.ReplaceAll(seg.literal, "\x00", ""))
			continue
		}
		compiled.WriteString(fieldStart + strconv.Itoa(len(values)) + fieldEnd)
		values = append(values, seg.field.apply(product))
	}

	t, err := fasttemplate.NewTemplate(compiled.String(), fieldStart, fieldEnd)
	if err != nil {
		return "", fmt.Errorf("compile template: %w", err)
	}
	return t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		i, err := strconv.Atoi(tag)
		if err != nil || i < 0 || i >= len(values) {
			return 0, fmt.Errorf("compile template: bad field tag %q", tag)
		}
		return io.WriteString(w, values[i])
	})
}

type segment struct {
	literal string
	field   *field
}

// parseTemplate splits tmpl into literal text and replacement fields in a
// single left-to-right pass. Doubled braces are escapes only in literal
// text; inside a field the first unnested '}' closes it.
func parseTemplate(tmpl string, relaxed bool) ([]segment, error) {
	var (
		segments []segment
		literal  strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(tmpl); {
		switch c := tmpl[i]; c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				literal.WriteByte('{')
				i += 2
				continue
			}

			end, err := closingBrace(tmpl, i)
			if err != nil {
				if !relaxed {
					return nil, err
				}
				literal.WriteByte('{')
				i++
				continue
			}

			f, err := parseField(tmpl[i+1 : end])
			if err != nil {
				if !relaxed {
					return nil, err
				}
				literal.WriteString(tmpl[i : end+1])
				i = end + 1
				continue
			}

			flush()
			segments = append(segments, segment{field: f})
			i = end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				literal.WriteByte('}')
				i += 2
				continue
			}
			if !relaxed {
				return nil, &FormatError{Detail: "single '}' encountered in format string", Err: ErrMalformedTemplate}
			}
			literal.WriteByte('}')
			i++
		default:
			literal.WriteByte(c)
			i++
		}
	}

	flush()
	return segments, nil
}

// closingBrace returns the index of the '}' that closes the field opened at
// start. Braces may nest only inside the format spec.
func closingBrace(tmpl string, start int) (int, error) {
	depth := 1
	inSpec := false
	for i := start + 1; i < len(tmpl); i++ {
		switch tmpl[i] {
		case ':':
			inSpec = true
		case '{':
			if !inSpec {
				return 0, &FormatError{Detail: "unexpected '{' in field name", Err: ErrMalformedTemplate}
			}
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, &FormatError{Detail: "expected '}' before end of string", Err: ErrMalformedTemplate}
}
