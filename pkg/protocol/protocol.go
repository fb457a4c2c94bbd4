// Package protocol defines the externally-facing shapes the response
// assembler produces: decoded tool calls, diagnostics, and the batch and
// streaming response forms consumed by an embedding server.
package protocol

// ToolCall represents an extracted function-call invocation.
type ToolCall struct {
	// ID uniquely identifies this invocation within the response.
	ID string `json:"id"`

	// Index is the zero-based position among the response's tool calls.
	Index int `json:"index"`

	// Name is the function name.
	Name string `json:"name"`

	// Arguments maps argument keys to decoded values.
	Arguments map[string]any `json:"arguments"`
}

// Diagnostic describes a call span that could not be decoded, or a
// recoverable problem on one that could.
type Diagnostic struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`

	// Raw preserves the offending span verbatim.
	Raw string `json:"raw,omitempty"`
}

// Result is the assembled outcome of a complete response stream.
type Result struct {
	// Content is the user-visible text with calls removed.
	Content string `json:"content,omitempty"`

	// ToolCalls are the extracted invocations, in completion order.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Diagnostics records what went wrong, in emission order.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// ToolsCalled reports whether any invocation was extracted.
func (r *Result) ToolsCalled() bool {
	return len(r.ToolCalls) > 0
}

// Delta is one unit of streamed assembler output. Exactly one field is set.
type Delta struct {
	// Content is a plain-text increment.
	Content string `json:"content,omitempty"`

	// ToolCall is a completed invocation.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// Diagnostic surfaces a parse problem.
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}
