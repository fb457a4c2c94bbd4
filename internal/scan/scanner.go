// Package scan implements the marker scanner: an incremental state machine
// that splits a stream of text fragments into plain text and tool-call
// spans, tolerating call markers that straddle fragment boundaries.
//
// One Scanner is scoped to exactly one response stream. Processing is
// single-threaded-cooperative: each fragment is handled to completion
// before the next, so the scanner carries no locking. Concurrency across
// streams comes from instantiating one scanner per stream.
package scan

import (
	"fmt"
	"strings"

	"github.com/sift-ai/sift/internal/decode"
	"github.com/sift-ai/sift/internal/errors"
	"github.com/sift-ai/sift/internal/extract"
)

type mode int

const (
	modePlain mode = iota
	modeCallName
	modeCallBody
	modeCallTail
)

// Scanner converts incoming fragments into an ordered emission sequence.
// Its persistent state is the accumulation buffer, the current mode and the
// bracket-depth counter, plus the bounded plain-text lookahead held back
// for a possible partial start marker.
type Scanner struct {
	cfg extract.Config
	dec *decode.Decoder

	mode  mode
	carry string          // unresolved plain text, always shorter than the start marker
	buf   strings.Builder // raw call text consumed so far, including markers

	depth   int
	quote   byte
	escaped bool

	tail   string // end-marker bytes still to match
	tailWS bool   // still skipping whitespace before the end marker
	endLen int    // bytes absorbed after the body (whitespace + end marker)

	closed bool
}

// New creates a scanner for one stream. The configuration is copied; the
// scanner never consults shared state.
func New(cfg extract.Config) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{cfg: cfg, dec: decode.New(cfg)}, nil
}

// Extract is the batch entry point: the whole text as a single fragment
// followed by end-of-stream. It produces exactly the emission sequence the
// incremental entry point would for the same complete input.
func Extract(cfg extract.Config, text string) ([]extract.Emission, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	out, err := s.Feed(text)
	if err != nil {
		return nil, err
	}
	final, err := s.Close()
	if err != nil {
		return nil, err
	}
	return append(out, final...), nil
}

// Feed processes one fragment in arrival order and returns the emissions it
// completed. Zero emissions is normal: the fragment may sit entirely inside
// an unfinished call or an unresolved marker prefix. Feeding after Close is
// a contract violation.
func (s *Scanner) Feed(fragment string) ([]extract.Emission, error) {
	if s.closed {
		return nil, errors.New(errors.CodeStreamClosed, "fragment fed after end-of-stream", errors.CategoryContract)
	}

	input := s.carry + fragment
	s.carry = ""

	var out []extract.Emission
	i := 0
	for i < len(input) {
		switch s.mode {
		case modePlain:
			i = s.scanPlain(input, i, &out)
		case modeCallName, modeCallBody:
			i = s.scanCall(input, i, &out)
		case modeCallTail:
			i = s.scanTail(input, i, &out)
		}
	}
	return out, nil
}

// Close signals end-of-stream. Held-back plain text is flushed; a stream
// that ends mid-call yields a truncation emission carrying the unfinished
// buffer verbatim. The scanner accepts no fragments afterwards.
func (s *Scanner) Close() ([]extract.Emission, error) {
	if s.closed {
		return nil, errors.New(errors.CodeStreamClosed, "stream closed twice", errors.CategoryContract)
	}
	s.closed = true

	var out []extract.Emission
	switch s.mode {
	case modePlain:
		if s.carry != "" {
			out = append(out, extract.PlainText(s.carry))
			s.carry = ""
		}
	case modeCallTail:
		// The body is already balanced; only end-marker bytes are missing.
		out = append(out, s.finish())
	default:
		out = append(out, extract.Error(&extract.ParseError{
			Reason: extract.ReasonTruncatedStream,
			Detail: "stream ended inside a call",
			Raw:    s.buf.String(),
		}))
		s.reset()
	}
	return out, nil
}

// scanPlain looks for the start marker. Text before it is emitted
// immediately; at most len(start)-1 trailing bytes are held back as a
// possible marker prefix.
func (s *Scanner) scanPlain(input string, i int, out *[]extract.Emission) int {
	rest := input[i:]
	if j := strings.Index(rest, s.cfg.Start); j >= 0 {
		if j > 0 {
			*out = append(*out, extract.PlainText(rest[:j]))
		}
		s.buf.WriteString(s.cfg.Start)
		s.mode = modeCallName
		return i + j + len(s.cfg.Start)
	}

	hold := markerOverlap(rest, s.cfg.Start)
	if cut := len(rest) - hold; cut > 0 {
		*out = append(*out, extract.PlainText(rest[:cut]))
	}
	s.carry = rest[len(rest)-hold:]
	return len(input)
}

// scanCall consumes one character of the call name or body, maintaining the
// quote state and the bracket-depth counter. The body is complete when the
// depth returns to zero after having been positive.
func (s *Scanner) scanCall(input string, i int, out *[]extract.Emission) int {
	c := input[i]
	s.buf.WriteByte(c)
	i++

	if s.mode == modeCallBody && s.quote != 0 {
		switch {
		case s.escaped:
			s.escaped = false
		case c == '\\':
			s.escaped = true
		case c == s.quote:
			s.quote = 0
		}
		return s.checkOverflow(i, out)
	}

	switch c {
	case '\'', '"':
		if s.mode == modeCallBody {
			s.quote = c
		}
	case '(', '[', '{':
		s.depth++
		s.mode = modeCallBody
	case ')', ']', '}':
		if s.mode == modeCallName {
			// A close before any open would drive the depth negative:
			// malformed call, never a crash. Hand what we have to the
			// decoder, which reports it.
			s.beginTail(c, out)
			return i
		}
		s.depth--
		if s.depth == 0 {
			s.beginTail(c, out)
			return i
		}
	}
	return s.checkOverflow(i, out)
}

// beginTail runs after the depth-zeroing close. When the end marker begins
// with that close (")}}"), the rest of the marker is expected; otherwise the
// whole marker is, optionally preceded by whitespace (MedGemma closes its
// fence on the next line). An absent marker does not discard the call: the
// body is balanced, so the call completes and the unmatched text returns to
// plain scanning.
func (s *Scanner) beginTail(closer byte, out *[]extract.Emission) {
	tail := s.cfg.End
	if tail != "" && tail[0] == closer {
		tail = tail[1:]
	}
	if tail == "" {
		*out = append(*out, s.finish())
		return
	}
	s.mode = modeCallTail
	s.tail = tail
	s.tailWS = true
	s.endLen = 0
}

// scanTail matches the remaining end-marker bytes, possibly across fragment
// boundaries.
func (s *Scanner) scanTail(input string, i int, out *[]extract.Emission) int {
	c := input[i]
	if s.tailWS && c != s.tail[0] && isSpace(c) {
		s.buf.WriteByte(c)
		s.endLen++
		return i + 1
	}
	if c == s.tail[0] {
		s.tailWS = false
		s.buf.WriteByte(c)
		s.endLen++
		s.tail = s.tail[1:]
		if s.tail == "" {
			*out = append(*out, s.finish())
		}
		return i + 1
	}
	// Marker mismatch: complete the call with what was absorbed and rescan
	// the current byte as plain text.
	*out = append(*out, s.finish())
	return i
}

// finish hands the buffered body (minus delimiters) to the decoder, emits
// the result and returns the scanner to plain mode.
func (s *Scanner) finish() extract.Emission {
	raw := s.buf.String()
	body := raw[len(s.cfg.Start) : len(raw)-s.endLen]
	s.reset()

	rec, perr := s.dec.Decode(body)
	if perr != nil {
		perr.Raw = raw
		return extract.Error(perr)
	}
	rec.Raw = raw
	return extract.Call(rec)
}

// checkOverflow guards the accumulation buffer against a call that never
// closes. The oversized span is surfaced, not silently dropped.
func (s *Scanner) checkOverflow(i int, out *[]extract.Emission) int {
	if s.buf.Len() <= s.cfg.MaxCallBytes {
		return i
	}
	*out = append(*out, extract.Error(&extract.ParseError{
		Reason: extract.ReasonMalformedPayload,
		Detail: fmt.Sprintf("call body exceeds %d bytes", s.cfg.MaxCallBytes),
		Raw:    s.buf.String(),
	}))
	s.reset()
	return i
}

// reset clears all per-call state.
func (s *Scanner) reset() {
	s.mode = modePlain
	s.buf.Reset()
	s.depth = 0
	s.quote = 0
	s.escaped = false
	s.tail = ""
	s.tailWS = false
	s.endLen = 0
}

// markerOverlap returns the length of the longest suffix of text that is a
// proper prefix of marker. That many bytes must be held back as lookahead.
func markerOverlap(text, marker string) int {
	max := len(marker) - 1
	if max > len(text) {
		max = len(text)
	}
	for k := max; k > 0; k-- {
		if text[len(text)-k:] == marker[:k] {
			return k
		}
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
