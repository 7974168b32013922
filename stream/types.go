// Package stream decodes newline-delimited JSON (application/x-ndjson)
// response bodies into content fragments and error notices.
//
// A stream is a sequence of frames separated by '\n'. Each frame is a JSON
// object carrying either a "response" string (a fragment of generated text)
// or an "error" string (a recoverable failure notice). Frames may be split
// arbitrarily across network reads; the Decoder buffers at most one partial
// frame between writes.
package stream

import "errors"

// ErrDecoderClosed is returned by Write once Close has been called.
var ErrDecoderClosed = errors.New("stream: decoder closed")

// EventKind tells fragments and error notices apart.
type EventKind int

const (
	// EventNone marks a frame that carries neither a fragment nor an error.
	EventNone EventKind = iota
	EventFragment
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventFragment:
		return "fragment"
	case EventError:
		return "error"
	default:
		return "none"
	}
}

// Event is one dispatched frame.
type Event struct {
	Kind EventKind
	Text string
}

// Sink receives decoded events. OnError is optional; error frames are
// counted but otherwise ignored when it is nil.
type Sink struct {
	OnFragment func(text string)
	OnError    func(message string)
}

// State is the decoder lifecycle position.
type State int

const (
	// StateBuffering accepts writes and dispatches complete frames.
	StateBuffering State = iota
	// StateDraining is entered by Close while the trailing partial frame
	// is parsed.
	StateDraining
	// StateDone is terminal.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateBuffering:
		return "buffering"
	case StateDraining:
		return "draining"
	default:
		return "done"
	}
}

// Stats counts what a decoder has dispatched or discarded.
type Stats struct {
	Fragments int
	Errors    int
	// Dropped counts frames that failed to parse or exceeded the frame
	// size limit. They are logged, never passed to the sink.
	Dropped int
}
