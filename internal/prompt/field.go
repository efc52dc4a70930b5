package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// field is one replacement field: name[!conversion][:spec].
type field struct {
	raw        string
	conversion byte
	spec       formatSpec
}

func parseField(raw string) (*field, error) {
	name, rest := raw, ""
	if i := strings.IndexAny(raw, "!:"); i >= 0 {
		name, rest = raw[:i], raw[i:]
	}

	switch {
	case name == "":
		return nil, &FormatError{Detail: "positional fields are not supported, use {product}", Err: ErrUnknownPlaceholder}
	case name == Placeholder:
	case strings.HasPrefix(name, Placeholder+".") || strings.HasPrefix(name, Placeholder+"["):
		return nil, &FormatError{Field: raw, Detail: "attribute and index lookups are not supported", Err: ErrUnknownPlaceholder}
	default:
		return nil, &FormatError{Field: raw, Detail: "only {product} is recognised", Err: ErrUnknownPlaceholder}
	}

	f := &field{raw: raw, spec: defaultSpec()}

	if strings.HasPrefix(rest, "!") {
		if len(rest) < 2 {
			return nil, &FormatError{Field: raw, Detail: "end of string while looking for conversion specifier", Err: ErrInvalidFormatSpec}
		}
		f.conversion = rest[1]
		if f.conversion != 's' && f.conversion != 'r' && f.conversion != 'a' {
			return nil, &FormatError{Field: raw, Detail: fmt.Sprintf("unknown conversion specifier %c", f.conversion), Err: ErrInvalidFormatSpec}
		}
		rest = rest[2:]
		if rest != "" && rest[0] != ':' {
			return nil, &FormatError{Field: raw, Detail: "expected ':' after conversion specifier", Err: ErrInvalidFormatSpec}
		}
	}

	if strings.HasPrefix(rest, ":") {
		spec, err := parseSpec(rest[1:])
		if err != nil {
			return nil, &FormatError{Field: raw, Detail: err.Error(), Err: ErrInvalidFormatSpec}
		}
		f.spec = spec
	}
	return f, nil
}

func (f *field) apply(product string) string {
	value := product
	switch f.conversion {
	case 'r':
		value = pyRepr(product, false)
	case 'a':
		value = pyRepr(product, true)
	}
	return f.spec.format(value)
}

// formatSpec is the string subset of the format mini-language:
// [[fill]align][0][width][.precision][s].
type formatSpec struct {
	fill      rune
	align     rune
	width     int
	precision int
}

func defaultSpec() formatSpec {
	return formatSpec{fill: ' ', align: '<', precision: -1}
}

func isAlign(r rune) bool {
	return r == '<' || r == '>' || r == '^' || r == '='
}

func parseSpec(raw string) (formatSpec, error) {
	s := defaultSpec()
	if strings.ContainsAny(raw, "{}") {
		return s, errors.New("nested replacement fields are not supported")
	}

	r := []rune(raw)
	i := 0
	switch {
	case len(r) >= 2 && isAlign(r[1]):
		s.fill, s.align, i = r[0], r[1], 2
	case len(r) >= 1 && isAlign(r[0]):
		s.align, i = r[0], 1
	}
	explicitAlign := i > 0

	if s.align == '=' {
		return s, errors.New("'=' alignment not allowed in string format specifier")
	}
	if i < len(r) && strings.ContainsRune("+- z", r[i]) {
		return s, errors.New("sign not allowed in string format specifier")
	}
	if i < len(r) && r[i] == '#' {
		return s, errors.New("alternate form (#) not allowed in string format specifier")
	}
	if i < len(r) && r[i] == '0' {
		if !explicitAlign {
			s.fill = '0'
		}
		i++
	}

	start := i
	for i < len(r) && r[i] >= '0' && r[i] <= '9' {
		i++
	}
	if i > start {
		w, err := strconv.Atoi(string(r[start:i]))
		if err != nil {
			return s, errors.New("too many decimal digits in format string")
		}
		s.width = w
	}

	if i < len(r) && (r[i] == ',' || r[i] == '_') {
		return s, fmt.Errorf("cannot specify '%c' with 's'", r[i])
	}

	if i < len(r) && r[i] == '.' {
		i++
		start = i
		for i < len(r) && r[i] >= '0' && r[i] <= '9' {
			i++
		}
		if i == start {
			return s, errors.New("format specifier missing precision")
		}
		p, err := strconv.Atoi(string(r[start:i]))
		if err != nil {
			return s, errors.New("too many decimal digits in format string")
		}
		s.precision = p
	}

	switch {
	case i == len(r):
	case i == len(r)-1 && r[i] == 's':
	case i == len(r)-1:
		return s, fmt.Errorf("unknown format code '%c' for object of type 'str'", r[i])
	default:
		return s, errors.New("invalid format specifier")
	}
	return s, nil
}

func (s formatSpec) format(value string) string {
	if s.precision >= 0 && utf8.RuneCountInString(value) > s.precision {
		value = string([]rune(value)[:s.precision])
	}

	pad := s.width - utf8.RuneCountInString(value)
	if pad <= 0 {
		return value
	}

	fill := string(s.fill)
	switch s.align {
	case '>':
		return strings.Repeat(fill, pad) + value
	case '^':
		left := pad / 2
		return strings.Repeat(fill, left) + value + strings.Repeat(fill, pad-left)
	default:
		return value + strings.Repeat(fill, pad)
	}
}

// pyRepr quotes s the way repr() quotes a str. With asciiOnly every
// non-ASCII rune is escaped as well, as ascii() does.
func pyRepr(s string, asciiOnly bool) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x80 && unicode.IsPrint(r):
			b.WriteRune(r)
		case !asciiOnly && r >= 0x80 && unicode.IsPrint(r):
			b.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	b.WriteRune(quote)
	return b.String()
}
