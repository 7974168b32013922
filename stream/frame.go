package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Frame is the decoded shape of one stream line. Other fields are ignored.
type Frame struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Kind reports how the frame is dispatched. A non-empty response wins over
// an error carried in the same frame.
func (f Frame) Kind() EventKind {
	switch {
	case f.Response != "":
		return EventFragment
	case f.Error != "":
		return EventError
	default:
		return EventNone
	}
}

// Event converts the frame into the event the sink would receive.
func (f Frame) Event() Event {
	switch f.Kind() {
	case EventFragment:
		return Event{Kind: EventFragment, Text: f.Response}
	case EventError:
		return Event{Kind: EventError, Text: f.Error}
	default:
		return Event{}
	}
}

// ParseFrame parses a single line. The line must hold exactly one JSON
// object; surrounding whitespace is allowed. Valid JSON that is not an
// object, such as 42 or ["a"], is rejected like any other malformed line,
// so the decoder drops and counts it instead of ignoring it.
func ParseFrame(line []byte) (Frame, error) {
	var f Frame
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return f, fmt.Errorf("stream: frame is not a JSON object")
	}
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return f, fmt.Errorf("stream: parse frame: %w", err)
	}
	return f, nil
}
