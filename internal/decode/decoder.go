// Package decode turns the raw substring between a call's boundaries into a
// normalized call record: function name plus argument mapping. It never
// aborts a stream; every failure is reported as a ParseError for the caller
// to emit.
package decode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/sift-ai/sift/internal/extract"
)

var (
	nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	keyRegex  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	bareRegex = regexp.MustCompile(`^[^'"{}\[\]()=,\s]+$`)
)

// Decoder decodes call bodies under one stream's configuration.
type Decoder struct {
	lenient bool
}

// New creates a decoder for the given configuration.
func New(cfg extract.Config) *Decoder {
	return &Decoder{lenient: cfg.LenientRepair}
}

// Decode parses a call body into a record. The body is the text between the
// call markers. Three shapes are accepted:
//
//	name(key=value, ...)      call style, optionally wrapped in print(...)
//	name{...}                 object style
//	{"name": ..., "args": {...}}   bare object style
//
// On failure the returned ParseError carries the reason; the caller is
// responsible for filling in the raw span on either result.
func (d *Decoder) Decode(body string) (*extract.CallRecord, *extract.ParseError) {
	s := strings.TrimSpace(body)
	if s == "" {
		return nil, &extract.ParseError{Reason: extract.ReasonMissingName, Detail: "empty call body"}
	}
	s = stripPrintWrapper(s)

	if strings.HasPrefix(s, "{") {
		return d.decodeObjectForm(s)
	}

	open := payloadStart(s)
	if open < 0 {
		// Name with no payload: treat as a zero-argument call.
		name := strings.TrimSpace(s)
		if !nameRegex.MatchString(name) {
			return nil, malformed(fmt.Sprintf("invalid function name %q", name))
		}
		return &extract.CallRecord{Name: name, Args: map[string]extract.Value{}}, nil
	}

	name := strings.TrimSpace(s[:open])
	if name == "" {
		return nil, &extract.ParseError{Reason: extract.ReasonMissingName, Detail: "no function name before argument payload"}
	}
	if !nameRegex.MatchString(name) {
		return nil, malformed(fmt.Sprintf("invalid function name %q", name))
	}

	var (
		args  map[string]extract.Value
		notes []extract.Note
		perr  *extract.ParseError
	)
	if s[open] == '(' {
		args, notes, perr = d.decodeCallArgs(s[open:])
	} else {
		args, notes, perr = d.decodeObjectArgs(s[open:])
	}
	if perr != nil {
		return nil, perr
	}
	return &extract.CallRecord{Name: name, Args: args, Notes: notes}, nil
}

// stripPrintWrapper removes the print(...) wrapper some models emit around
// the actual call.
func stripPrintWrapper(s string) string {
	if strings.HasPrefix(s, "print(") && strings.HasSuffix(s, ")") {
		return strings.TrimSpace(s[len("print(") : len(s)-1])
	}
	return s
}

// payloadStart returns the index of the first structural open that begins
// the argument payload, or -1.
func payloadStart(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '(' || s[i] == '{' {
			return i
		}
	}
	return -1
}

// decodeObjectForm handles a bare object body carrying the name inside:
// {"name": "fn", "args": {...}}. Both "args" and "arguments" are accepted.
func (d *Decoder) decodeObjectForm(s string) (*extract.CallRecord, *extract.ParseError) {
	members, notes, perr := d.decodeObjectArgs(s)
	if perr != nil {
		return nil, perr
	}
	nameVal, ok := members["name"]
	if !ok || nameVal.Kind != extract.ValueString || nameVal.Str == "" {
		return nil, &extract.ParseError{Reason: extract.ReasonMissingName, Detail: "object payload has no \"name\" member"}
	}
	if !nameRegex.MatchString(nameVal.Str) {
		return nil, malformed(fmt.Sprintf("invalid function name %q", nameVal.Str))
	}

	args := map[string]extract.Value{}
	for _, key := range []string{"args", "arguments"} {
		if v, ok := members[key]; ok {
			if v.Kind != extract.ValueObject {
				return nil, malformed(fmt.Sprintf("%q member is not an object", key))
			}
			args = v.Obj
			break
		}
	}
	return &extract.CallRecord{Name: nameVal.Str, Args: args, Notes: notes}, nil
}

// decodeObjectArgs parses a brace-delimited payload into its members,
// retrying once through jsonrepair when lenient repair is enabled.
func (d *Decoder) decodeObjectArgs(payload string) (map[string]extract.Value, []extract.Note, *extract.ParseError) {
	p := newValueParser(payload)
	v, err := p.parseAll()
	if err != nil {
		if !d.lenient {
			return nil, nil, malformed(err.Error())
		}
		repaired, repErr := jsonrepair.JSONRepair(payload)
		if repErr != nil {
			return nil, nil, malformed(err.Error())
		}
		p = newValueParser(repaired)
		if v, err = p.parseAll(); err != nil {
			return nil, nil, malformed(err.Error())
		}
		args, notes, perr := objectMembers(v, p.dups)
		if perr != nil {
			return nil, nil, perr
		}
		notes = append(notes, extract.Note{Reason: extract.ReasonMalformedPayload, Detail: "payload repaired"})
		return args, notes, nil
	}
	return objectMembers(v, p.dups)
}

func objectMembers(v extract.Value, dups []string) (map[string]extract.Value, []extract.Note, *extract.ParseError) {
	if v.Kind != extract.ValueObject {
		return nil, nil, malformed("argument payload is not an object")
	}
	var notes []extract.Note
	for _, key := range dups {
		notes = append(notes, extract.Note{
			Reason: extract.ReasonDuplicateKey,
			Detail: fmt.Sprintf("duplicate argument key %q, last occurrence wins", key),
		})
	}
	return v.Obj, notes, nil
}

// decodeCallArgs parses a parenthesized key=value list. The payload starts
// at the opening parenthesis.
func (d *Decoder) decodeCallArgs(payload string) (map[string]extract.Value, []extract.Note, *extract.ParseError) {
	inner, rest, err := matchBrackets(payload)
	if err != nil {
		return nil, nil, malformed(err.Error())
	}
	if strings.TrimSpace(rest) != "" {
		return nil, nil, malformed("unexpected text after argument payload")
	}

	args := map[string]extract.Value{}
	var notes []extract.Note
	for _, part := range splitTopLevel(inner) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := topLevelEquals(part)
		if eq < 0 {
			return nil, nil, malformed(fmt.Sprintf("argument %q is not key=value", part))
		}
		key := strings.TrimSpace(part[:eq])
		if !keyRegex.MatchString(key) {
			return nil, nil, malformed(fmt.Sprintf("invalid argument key %q", key))
		}
		val, perr := parseArgValue(strings.TrimSpace(part[eq+1:]))
		if perr != nil {
			return nil, nil, perr
		}
		if _, seen := args[key]; seen {
			notes = append(notes, extract.Note{
				Reason: extract.ReasonDuplicateKey,
				Detail: fmt.Sprintf("duplicate argument key %q, last occurrence wins", key),
			})
		}
		args[key] = val
	}
	return args, notes, nil
}

// parseArgValue decodes one call-style argument value: a structured-data
// value, with a fallback for bare tokens (count=5, flag=True, city=Riyadh)
// in the style the models actually emit.
func parseArgValue(text string) (extract.Value, *extract.ParseError) {
	if text == "" {
		return extract.NullValue(), malformed("empty argument value")
	}
	p := newValueParser(text)
	if v, err := p.parseAll(); err == nil {
		return v, nil
	}
	if !bareRegex.MatchString(text) {
		return extract.NullValue(), malformed(fmt.Sprintf("invalid argument value %q", text))
	}
	switch strings.ToLower(text) {
	case "true":
		return extract.BoolValue(true), nil
	case "false":
		return extract.BoolValue(false), nil
	case "null", "none":
		return extract.NullValue(), nil
	default:
		return extract.StringValue(text), nil
	}
}

// matchBrackets consumes a balanced bracket group starting at s[0] and
// returns the text inside it plus whatever follows. Bracket kinds must
// match; quoted literals are skipped.
func matchBrackets(s string) (inner, rest string, err error) {
	var stack []byte
	var quote byte
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 {
				return "", "", fmt.Errorf("unbalanced brackets: unexpected %q", c)
			}
			open := stack[len(stack)-1]
			if !bracketPairs(open, c) {
				return "", "", fmt.Errorf("unbalanced brackets: %q closed by %q", open, c)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[1:i], s[i+1:], nil
			}
		}
	}
	if quote != 0 {
		return "", "", fmt.Errorf("unterminated string literal")
	}
	return "", "", fmt.Errorf("unbalanced brackets: %d left open", len(stack))
}

func bracketPairs(open, close byte) bool {
	switch open {
	case '(':
		return close == ')'
	case '[':
		return close == ']'
	case '{':
		return close == '}'
	}
	return false
}

// splitTopLevel splits on commas that are outside quotes and brackets.
func splitTopLevel(s string) []string {
	var parts []string
	var depth int
	var quote byte
	escaped := false
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// topLevelEquals returns the index of the first '=' outside quotes and
// brackets, or -1.
func topLevelEquals(s string) int {
	var depth int
	var quote byte
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func malformed(detail string) *extract.ParseError {
	return &extract.ParseError{Reason: extract.ReasonMalformedPayload, Detail: detail}
}
