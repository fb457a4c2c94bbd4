// Package extract defines the data model shared by the marker scanner and
// the call decoder: emissions, call records, parse error reasons, and the
// per-stream configuration.
package extract

// Reason classifies what went wrong with a call payload.
type Reason string

const (
	// ReasonMalformedPayload means the structured argument data did not parse.
	ReasonMalformedPayload Reason = "malformed_payload"

	// ReasonMissingName means no function name was found in the call body.
	ReasonMissingName Reason = "missing_name"

	// ReasonDuplicateKey means an argument key appeared more than once.
	// Recoverable: the last occurrence wins and the record is still emitted.
	ReasonDuplicateKey Reason = "duplicate_key"

	// ReasonTruncatedStream means the stream ended in the middle of a call.
	ReasonTruncatedStream Reason = "truncated_stream"
)

// Kind tags the variant of an Emission.
type Kind int

const (
	// KindPlainText is ordinary content outside any call markers.
	KindPlainText Kind = iota

	// KindToolCall is a completed, decoded call record.
	KindToolCall

	// KindParseError is a call span that could not be decoded.
	KindParseError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plain_text"
	case KindToolCall:
		return "tool_call"
	case KindParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Emission is one unit of scanner output. Exactly one of Text, Call or Err
// is meaningful, selected by Kind.
type Emission struct {
	Kind Kind
	Text string
	Call *CallRecord
	Err  *ParseError
}

// PlainText builds a plain-text emission.
func PlainText(text string) Emission {
	return Emission{Kind: KindPlainText, Text: text}
}

// Call builds a tool-call emission.
func Call(record *CallRecord) Emission {
	return Emission{Kind: KindToolCall, Call: record}
}

// Error builds a parse-error emission.
func Error(err *ParseError) Emission {
	return Emission{Kind: KindParseError, Err: err}
}

// Raw returns the original input text this emission covers. Concatenating
// Raw over a full emission sequence reconstructs the stream exactly.
func (e Emission) Raw() string {
	switch e.Kind {
	case KindToolCall:
		return e.Call.Raw
	case KindParseError:
		return e.Err.Raw
	default:
		return e.Text
	}
}

// CallRecord is a decoded call: function name plus argument mapping.
// Immutable once emitted; owned by the caller.
type CallRecord struct {
	// Name is the function name token.
	Name string

	// Args maps argument keys to decoded values.
	Args map[string]Value

	// Raw is the original text span the record was derived from,
	// including the call markers.
	Raw string

	// Notes carries recoverable problems (duplicate keys, repaired
	// payloads) that did not prevent decoding.
	Notes []Note
}

// Note annotates a successfully decoded record with a non-fatal problem.
type Note struct {
	Reason Reason
	Detail string
}

// ParseError describes a call span that could not be decoded. It is an
// emission, not a Go error: a malformed call never aborts the stream.
type ParseError struct {
	Reason Reason
	Detail string

	// Raw preserves the offending span verbatim so callers can log it or
	// re-surface it as plain text.
	Raw string
}

// String formats the error for diagnostics.
func (e *ParseError) String() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}
