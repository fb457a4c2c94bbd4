package decode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sift-ai/sift/internal/extract"
)

// valueParser is a recursive-descent parser for the structured-data grammar:
// object / array / string / number / boolean / null. It extends strict JSON
// with single-quoted string literals, which the models this engine targets
// emit for call-style arguments. Duplicate object keys are recorded rather
// than rejected; the last occurrence wins.
type valueParser struct {
	s    string
	pos  int
	dups []string
}

func newValueParser(s string) *valueParser {
	return &valueParser{s: s}
}

// parseAll parses exactly one value and requires the input to be fully
// consumed apart from trailing whitespace.
func (p *valueParser) parseAll() (extract.Value, error) {
	v, err := p.parseValue()
	if err != nil {
		return extract.NullValue(), err
	}
	p.skipSpace()
	if p.pos < len(p.s) {
		return extract.NullValue(), fmt.Errorf("unexpected trailing data at offset %d", p.pos)
	}
	return v, nil
}

func (p *valueParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *valueParser) parseValue() (extract.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return extract.NullValue(), fmt.Errorf("unexpected end of input at offset %d", p.pos)
	}

	switch c := p.s[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"' || c == '\'':
		s, err := p.parseString()
		if err != nil {
			return extract.NullValue(), err
		}
		return extract.StringValue(s), nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseLiteral()
	}
}

func (p *valueParser) parseObject() (extract.Value, error) {
	p.pos++ // consume '{'
	members := make(map[string]extract.Value)

	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return extract.ObjectValue(members), nil
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.s) || (p.s[p.pos] != '"' && p.s[p.pos] != '\'') {
			return extract.NullValue(), fmt.Errorf("expected object key at offset %d", p.pos)
		}
		key, err := p.parseString()
		if err != nil {
			return extract.NullValue(), err
		}

		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return extract.NullValue(), fmt.Errorf("expected ':' at offset %d", p.pos)
		}
		p.pos++

		v, err := p.parseValue()
		if err != nil {
			return extract.NullValue(), err
		}
		if _, seen := members[key]; seen {
			p.dups = append(p.dups, key)
		}
		members[key] = v

		p.skipSpace()
		if p.pos >= len(p.s) {
			return extract.NullValue(), fmt.Errorf("unterminated object at offset %d", p.pos)
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return extract.ObjectValue(members), nil
		default:
			return extract.NullValue(), fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
		}
	}
}

func (p *valueParser) parseArray() (extract.Value, error) {
	p.pos++ // consume '['
	items := []extract.Value{}

	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == ']' {
		p.pos++
		return extract.ArrayValue(items), nil
	}

	for {
		v, err := p.parseValue()
		if err != nil {
			return extract.NullValue(), err
		}
		items = append(items, v)

		p.skipSpace()
		if p.pos >= len(p.s) {
			return extract.NullValue(), fmt.Errorf("unterminated array at offset %d", p.pos)
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return extract.ArrayValue(items), nil
		default:
			return extract.NullValue(), fmt.Errorf("expected ',' or ']' at offset %d", p.pos)
		}
	}
}

// parseString parses a double- or single-quoted string literal with JSON
// escape sequences, including \uXXXX and surrogate pairs.
func (p *valueParser) parseString() (string, error) {
	quote := p.s[p.pos]
	p.pos++
	var sb strings.Builder

	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			p.pos++
			if p.pos >= len(p.s) {
				return "", fmt.Errorf("unterminated escape at offset %d", p.pos)
			}
			esc := p.s[p.pos]
			switch esc {
			case '"', '\'', '\\', '/':
				sb.WriteByte(esc)
				p.pos++
			case 'b':
				sb.WriteByte('\b')
				p.pos++
			case 'f':
				sb.WriteByte('\f')
				p.pos++
			case 'n':
				sb.WriteByte('\n')
				p.pos++
			case 'r':
				sb.WriteByte('\r')
				p.pos++
			case 't':
				sb.WriteByte('\t')
				p.pos++
			case 'u':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			default:
				return "", fmt.Errorf("invalid escape '\\%c' at offset %d", esc, p.pos)
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d", p.pos)
}

// parseUnicodeEscape decodes \uXXXX, combining surrogate pairs. Called with
// pos on the 'u'.
func (p *valueParser) parseUnicodeEscape() (rune, error) {
	first, err := p.parseHex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(rune(first)) {
		return rune(first), nil
	}
	// Expect a low surrogate to follow.
	if p.pos+1 < len(p.s) && p.s[p.pos] == '\\' && p.s[p.pos+1] == 'u' {
		save := p.pos
		p.pos += 2
		second, err := p.parseHex4()
		if err != nil {
			return 0, err
		}
		if r := utf16.DecodeRune(rune(first), rune(second)); r != utf8.RuneError {
			return r, nil
		}
		p.pos = save
	}
	return utf8.RuneError, nil
}

// parseHex4 reads four hex digits after "\u". Called with pos past the 'u'.
func (p *valueParser) parseHex4() (uint16, error) {
	p.pos++ // consume 'u'
	if p.pos+4 > len(p.s) {
		return 0, fmt.Errorf("truncated unicode escape at offset %d", p.pos)
	}
	n, err := strconv.ParseUint(p.s[p.pos:p.pos+4], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode escape at offset %d", p.pos)
	}
	p.pos += 4
	return uint16(n), nil
}

func (p *valueParser) parseNumber() (extract.Value, error) {
	start := p.pos
	if p.pos < len(p.s) && p.s[p.pos] == '-' {
		p.pos++
	}
	digits := 0
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
		digits++
	}
	if digits == 0 {
		return extract.NullValue(), fmt.Errorf("invalid number at offset %d", start)
	}
	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos < len(p.s) && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}
	n, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return extract.NullValue(), fmt.Errorf("invalid number %q at offset %d", p.s[start:p.pos], start)
	}
	return extract.NumberValue(n), nil
}

func (p *valueParser) parseLiteral() (extract.Value, error) {
	switch {
	case strings.HasPrefix(p.s[p.pos:], "true"):
		p.pos += 4
		return extract.BoolValue(true), nil
	case strings.HasPrefix(p.s[p.pos:], "false"):
		p.pos += 5
		return extract.BoolValue(false), nil
	case strings.HasPrefix(p.s[p.pos:], "null"):
		p.pos += 4
		return extract.NullValue(), nil
	default:
		return extract.NullValue(), fmt.Errorf("invalid literal at offset %d", p.pos)
	}
}
