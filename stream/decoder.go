package stream

import (
	"bytes"
	"log/slog"

	"github.com/sweetpotato0/ragdeck/pkg/logging"
)

const (
	defaultReadSize = 4096
	previewLen      = 64
)

// Option configures a Decoder.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	maxFrame int
	readSize int
}

// WithLogger overrides the logger used to report dropped frames.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxFrameSize drops any frame longer than n bytes. Zero disables the limit.
func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxFrame = n
		}
	}
}

// WithReadSize sets the buffer size Decode and Events read with.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{readSize: defaultReadSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.WithComponent("stream")
	}
	return o
}

// Decoder turns written chunks into sink calls. It implements io.WriteCloser.
//
// A Decoder serves a single stream and is not safe for concurrent use;
// independent streams each get their own Decoder.
type Decoder struct {
	sink  Sink
	opts  options
	buf   []byte
	state State
	stats Stats

	// skipping is set after an oversized partial frame was dropped; bytes
	// are discarded until the next separator.
	skipping bool
}

// NewDecoder creates a decoder dispatching to sink.
func NewDecoder(sink Sink, opts ...Option) *Decoder {
	return &Decoder{
		sink: sink,
		opts: newOptions(opts),
	}
}

// Write appends p to the buffer and dispatches every complete frame.
// It always consumes all of p unless the decoder is closed.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.state != StateBuffering {
		return 0, ErrDecoderClosed
	}
	n := len(p)

	if d.skipping {
		idx := bytes.IndexByte(p, '\n')
		if idx < 0 {
			return n, nil
		}
		d.skipping = false
		p = p[idx+1:]
	}

	// The buffered remainder never holds a separator, so only the new
	// bytes need scanning.
	scanFrom := len(d.buf)
	d.buf = append(d.buf, p...)

	start := 0
	for {
		idx := bytes.IndexByte(d.buf[scanFrom:], '\n')
		if idx < 0 {
			break
		}
		end := scanFrom + idx
		d.dispatch(d.buf[start:end])
		start = end + 1
		scanFrom = start
	}

	rest := copy(d.buf, d.buf[start:])
	d.buf = d.buf[:rest]

	if d.opts.maxFrame > 0 && len(d.buf) > d.opts.maxFrame {
		d.drop(d.buf, "frame exceeds size limit", nil)
		d.buf = d.buf[:0]
		d.skipping = true
	}
	return n, nil
}

// Close parses any buffered partial frame and moves the decoder to its
// terminal state. Calling Close more than once is a no-op.
func (d *Decoder) Close() error {
	if d.state == StateDone {
		return nil
	}
	d.state = StateDraining
	if !d.skipping && len(d.buf) > 0 {
		d.dispatch(d.buf)
	}
	d.buf = nil
	d.skipping = false
	d.state = StateDone
	return nil
}

// State returns the lifecycle state.
func (d *Decoder) State() State {
	return d.state
}

// Stats returns the counts so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Buffered returns the number of bytes held for an incomplete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) dispatch(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	if d.opts.maxFrame > 0 && len(line) > d.opts.maxFrame {
		d.drop(line, "frame exceeds size limit", nil)
		return
	}

	frame, err := ParseFrame(line)
	if err != nil {
		d.drop(line, "failed to parse stream frame", err)
		return
	}

	switch frame.Kind() {
	case EventFragment:
		d.stats.Fragments++
		if d.sink.OnFragment != nil {
			d.sink.OnFragment(frame.Response)
		}
	case EventError:
		d.stats.Errors++
		if d.sink.OnError != nil {
			d.sink.OnError(frame.Error)
		}
	}
}

func (d *Decoder) drop(line []byte, msg string, err error) {
	d.stats.Dropped++
	preview := line
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	attrs := []any{"bytes", len(line), "preview", string(preview)}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	d.opts.logger.Warn(msg, attrs...)
}
