package stream

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/sweetpotato0/ragdeck/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Decode reads r until io.EOF and dispatches every frame to sink.
//
// A non-EOF read error or a cancelled context stops decoding and is
// returned; whatever was buffered for an unfinished frame is discarded.
// Decode cannot interrupt a Read that is already blocked, so r should be
// bound to ctx (an HTTP response body from a request built with ctx is).
func Decode(ctx context.Context, r io.Reader, sink Sink, opts ...Option) (stats Stats, err error) {
	ctx, span := telemetry.Start(ctx, "stream.decode")
	defer func() {
		span.SetAttributes(
			attribute.Int("stream.fragments", stats.Fragments),
			attribute.Int("stream.errors", stats.Errors),
			attribute.Int("stream.dropped", stats.Dropped),
		)
		telemetry.End(span, err)
	}()

	dec := NewDecoder(sink, opts...)
	buf := make([]byte, dec.opts.readSize)
	for {
		if err := ctx.Err(); err != nil {
			return dec.Stats(), err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
		}
		if errors.Is(rerr, io.EOF) {
			dec.Close()
			return dec.Stats(), nil
		}
		if rerr != nil {
			return dec.Stats(), rerr
		}
	}
}

// Events returns the frames of r as a pull-style sequence. Error frames are
// yielded as events with Kind EventError; the error value is only set for
// read failures and context cancellation, after which the sequence ends.
func Events(ctx context.Context, r io.Reader, opts ...Option) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		var pending []Event
		dec := NewDecoder(Sink{
			OnFragment: func(text string) {
				pending = append(pending, Event{Kind: EventFragment, Text: text})
			},
			OnError: func(message string) {
				pending = append(pending, Event{Kind: EventError, Text: message})
			},
		}, opts...)

		flush := func() bool {
			for i, ev := range pending {
				if !yield(ev, nil) {
					pending = pending[i+1:]
					return false
				}
			}
			pending = pending[:0]
			return true
		}

		buf := make([]byte, dec.opts.readSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(Event{}, err)
				return
			}
			n, rerr := r.Read(buf)
			if n > 0 {
				dec.Write(buf[:n])
				if !flush() {
					return
				}
			}
			if errors.Is(rerr, io.EOF) {
				dec.Close()
				flush()
				return
			}
			if rerr != nil {
				yield(Event{}, rerr)
				return
			}
		}
	}
}
