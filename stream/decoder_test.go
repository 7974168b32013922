package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/sweetpotato0/ragdeck/pkg/logging"
)

type recorder struct {
	events []Event
}

func (r *recorder) sink() Sink {
	return Sink{
		OnFragment: func(text string) {
			r.events = append(r.events, Event{Kind: EventFragment, Text: text})
		},
		OnError: func(message string) {
			r.events = append(r.events, Event{Kind: EventError, Text: message})
		},
	}
}

func quiet() Option {
	return WithLogger(logging.Discard())
}

// chunkReader hands out the payload in fixed-size reads.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func decodeChunks(t *testing.T, chunks ...[]byte) ([]Event, Stats) {
	t.Helper()
	rec := &recorder{}
	dec := NewDecoder(rec.sink(), quiet())
	for _, c := range chunks {
		if _, err := dec.Write(c); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := dec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return rec.events, dec.Stats()
}

func TestDecoderExamples(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []Event
		dropped int
	}{
		{
			name:    "two fragments",
			payload: "{\"response\":\"a\"}\n{\"response\":\"b\"}\n",
			want: []Event{
				{Kind: EventFragment, Text: "a"},
				{Kind: EventFragment, Text: "b"},
			},
		},
		{
			name:    "fragment then error",
			payload: "{\"response\":\"x\"}\n{\"error\":\"bad query\"}\n",
			want: []Event{
				{Kind: EventFragment, Text: "x"},
				{Kind: EventError, Text: "bad query"},
			},
		},
		{
			name:    "no trailing newline",
			payload: `{"response":"tail"}`,
			want:    []Event{{Kind: EventFragment, Text: "tail"}},
		},
		{
			name:    "malformed line skipped",
			payload: "not-json\n{\"response\":\"ok\"}\n",
			want:    []Event{{Kind: EventFragment, Text: "ok"}},
			dropped: 1,
		},
		{
			name:    "empty stream",
			payload: "",
			want:    nil,
		},
		{
			name:    "blank and crlf lines",
			payload: "\n   \n{\"response\":\"r\"}\r\n\r\n",
			want:    []Event{{Kind: EventFragment, Text: "r"}},
		},
		{
			name:    "response wins over error",
			payload: "{\"response\":\"both\",\"error\":\"ignored\"}\n",
			want:    []Event{{Kind: EventFragment, Text: "both"}},
		},
		{
			name:    "empty fields dispatch nothing",
			payload: "{\"response\":\"\"}\n{\"status\":\"working\"}\n",
			want:    nil,
		},
		{
			name:    "non-object json is malformed",
			payload: "42\n\"str\"\n[1]\nnull\n{\"response\":\"z\"}",
			want:    []Event{{Kind: EventFragment, Text: "z"}},
			dropped: 4,
		},
		{
			name:    "wrong field type is malformed",
			payload: "{\"response\":5}\n",
			want:    nil,
			dropped: 1,
		},
		{
			name:    "malformed tail",
			payload: "{\"response\":\"a\"}\n{\"respo",
			want:    []Event{{Kind: EventFragment, Text: "a"}},
			dropped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := decodeChunks(t, []byte(tt.payload))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("events = %#v, want %#v", got, tt.want)
			}
			if stats.Dropped != tt.dropped {
				t.Fatalf("dropped = %d, want %d", stats.Dropped, tt.dropped)
			}
		})
	}
}

func TestDecoderChunkSplitInvariance(t *testing.T) {
	payload := []byte(strings.Join([]string{
		`{"response":"Hello, "}`,
		`{"response":"世界 — ünïcode"}`,
		`garbage{`,
		`{"error":"rate limited"}`,
		``,
		`{"response":"tail without newline"}`,
	}, "\n"))

	want, wantStats := decodeChunks(t, payload)
	if len(want) != 4 || wantStats.Dropped != 1 {
		t.Fatalf("unexpected baseline: %#v %+v", want, wantStats)
	}

	t.Run("two chunks at every offset", func(t *testing.T) {
		for i := 0; i <= len(payload); i++ {
			got, stats := decodeChunks(t, payload[:i], payload[i:])
			if !reflect.DeepEqual(got, want) || stats != wantStats {
				t.Fatalf("split at %d: events = %#v, stats = %+v", i, got, stats)
			}
		}
	})

	t.Run("fixed chunk sizes", func(t *testing.T) {
		for size := 1; size <= len(payload); size++ {
			var chunks [][]byte
			for off := 0; off < len(payload); off += size {
				end := min(off+size, len(payload))
				chunks = append(chunks, payload[off:end])
			}
			got, stats := decodeChunks(t, chunks...)
			if !reflect.DeepEqual(got, want) || stats != wantStats {
				t.Fatalf("size %d: events = %#v, stats = %+v", size, got, stats)
			}
		}
	})

	t.Run("split exactly on newline", func(t *testing.T) {
		idx := bytes.IndexByte(payload, '\n')
		got, _ := decodeChunks(t, payload[:idx+1], payload[idx+1:])
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("events = %#v", got)
		}
		got, _ = decodeChunks(t, payload[:idx], payload[idx:])
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("events = %#v", got)
		}
	})
}

func TestDecoderRandomSplits(t *testing.T) {
	payload := []byte(strings.Join([]string{
		`{"response":"alpha "}`,
		"   ",
		`{"response":"béta"}`,
		`42`,
		`{"error":"retriever timeout"}`,
		``,
		`["not","an","object"]`,
		`{"response":"gamma"}`,
		`{"respo`,
		"\t",
		`{"response":"tail"}`,
	}, "\n"))

	want, wantStats := decodeChunks(t, payload)
	if wantStats.Fragments != 4 || wantStats.Errors != 1 || wantStats.Dropped != 3 {
		t.Fatalf("unexpected baseline: %+v", wantStats)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		var chunks [][]byte
		for off := 0; off < len(payload); {
			end := min(off+1+rng.Intn(12), len(payload))
			chunks = append(chunks, payload[off:end])
			off = end
		}
		got, stats := decodeChunks(t, chunks...)
		if !reflect.DeepEqual(got, want) || stats != wantStats {
			t.Fatalf("iteration %d (%d chunks): events = %#v, stats = %+v", i, len(chunks), got, stats)
		}
	}
}

func TestDecoderBuffersOnePartialFrame(t *testing.T) {
	rec := &recorder{}
	dec := NewDecoder(rec.sink(), quiet())

	dec.Write([]byte("{\"response\":\"a\"}\n{\"resp"))
	if got := dec.Buffered(); got != len(`{"resp`) {
		t.Fatalf("Buffered() = %d", got)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected the complete frame to be dispatched, got %d events", len(rec.events))
	}

	dec.Write([]byte("onse\":\"b\"}\n"))
	if dec.Buffered() != 0 {
		t.Fatalf("Buffered() = %d after completing frame", dec.Buffered())
	}
	if len(rec.events) != 2 || rec.events[1].Text != "b" {
		t.Fatalf("events = %#v", rec.events)
	}
}

func TestDecoderStateMachine(t *testing.T) {
	dec := NewDecoder(Sink{}, quiet())
	if dec.State() != StateBuffering {
		t.Fatalf("initial state = %s", dec.State())
	}
	if _, err := dec.Write([]byte(`{"response":"unseen"}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := dec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if dec.State() != StateDone {
		t.Fatalf("state after Close = %s", dec.State())
	}
	if _, err := dec.Write([]byte("x")); !errors.Is(err, ErrDecoderClosed) {
		t.Fatalf("Write after Close error = %v", err)
	}
	if err := dec.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if dec.Stats().Fragments != 1 {
		t.Fatalf("nil OnFragment should still count, stats = %+v", dec.Stats())
	}
}

func TestDecoderNilErrorSink(t *testing.T) {
	var fragments []string
	dec := NewDecoder(Sink{OnFragment: func(s string) { fragments = append(fragments, s) }}, quiet())
	dec.Write([]byte("{\"error\":\"boom\"}\n{\"response\":\"after\"}\n"))
	dec.Close()

	if !reflect.DeepEqual(fragments, []string{"after"}) {
		t.Fatalf("fragments = %v", fragments)
	}
	if dec.Stats().Errors != 1 {
		t.Fatalf("stats = %+v", dec.Stats())
	}
}

func TestDecoderMaxFrameSize(t *testing.T) {
	big := `{"response":"` + strings.Repeat("x", 100) + `"}`
	payload := []byte(big + "\n" + `{"response":"small"}` + "\n")

	for _, size := range []int{1, 7, 32, len(payload)} {
		t.Run(fmt.Sprintf("chunk %d", size), func(t *testing.T) {
			rec := &recorder{}
			stats, err := Decode(context.Background(), &chunkReader{data: payload, size: size}, rec.sink(),
				quiet(), WithMaxFrameSize(64), WithReadSize(size))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			want := []Event{{Kind: EventFragment, Text: "small"}}
			if !reflect.DeepEqual(rec.events, want) {
				t.Fatalf("events = %#v", rec.events)
			}
			if stats.Dropped != 1 {
				t.Fatalf("dropped = %d", stats.Dropped)
			}
		})
	}
}

func TestDecodeReader(t *testing.T) {
	payload := "{\"response\":\"one\"}\n{\"error\":\"two\"}\n{\"response\":\"three\"}"

	t.Run("one byte reads", func(t *testing.T) {
		rec := &recorder{}
		stats, err := Decode(context.Background(), iotest.OneByteReader(strings.NewReader(payload)), rec.sink(), quiet())
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if stats.Fragments != 2 || stats.Errors != 1 {
			t.Fatalf("stats = %+v", stats)
		}
		if rec.events[2].Text != "three" {
			t.Fatalf("events = %#v", rec.events)
		}
	})

	t.Run("data with EOF", func(t *testing.T) {
		rec := &recorder{}
		_, err := Decode(context.Background(), iotest.DataErrReader(strings.NewReader(payload)), rec.sink(), quiet())
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if len(rec.events) != 3 {
			t.Fatalf("events = %#v", rec.events)
		}
	})

	t.Run("empty reader", func(t *testing.T) {
		rec := &recorder{}
		stats, err := Decode(context.Background(), strings.NewReader(""), rec.sink(), quiet())
		if err != nil || len(rec.events) != 0 || stats != (Stats{}) {
			t.Fatalf("err = %v, events = %#v, stats = %+v", err, rec.events, stats)
		}
	})

	t.Run("read error discards partial frame", func(t *testing.T) {
		rec := &recorder{}
		boom := errors.New("connection reset")
		r := io.MultiReader(strings.NewReader("{\"response\":\"ok\"}\n{\"response\":\"cut"), iotest.ErrReader(boom))
		_, err := Decode(context.Background(), r, rec.sink(), quiet())
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		want := []Event{{Kind: EventFragment, Text: "ok"}}
		if !reflect.DeepEqual(rec.events, want) {
			t.Fatalf("events = %#v", rec.events)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := &recorder{}
		_, err := Decode(ctx, strings.NewReader(payload), rec.sink(), quiet())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
		if len(rec.events) != 0 {
			t.Fatalf("events = %#v", rec.events)
		}
	})
}

func TestEvents(t *testing.T) {
	payload := "{\"response\":\"a\"}\nbad\n{\"error\":\"e\"}\n{\"response\":\"b\"}"

	var got []Event
	for ev, err := range Events(context.Background(), &chunkReader{data: []byte(payload), size: 5}, quiet()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, ev)
	}
	want := []Event{
		{Kind: EventFragment, Text: "a"},
		{Kind: EventError, Text: "e"},
		{Kind: EventFragment, Text: "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v", got)
	}

	t.Run("early break", func(t *testing.T) {
		count := 0
		for range Events(context.Background(), strings.NewReader(payload), quiet()) {
			count++
			break
		}
		if count != 1 {
			t.Fatalf("count = %d", count)
		}
	})

	t.Run("read error", func(t *testing.T) {
		boom := errors.New("boom")
		var lastErr error
		for _, err := range Events(context.Background(), iotest.ErrReader(boom), quiet()) {
			lastErr = err
		}
		if !errors.Is(lastErr, boom) {
			t.Fatalf("err = %v", lastErr)
		}
	})
}

func TestConcurrentDecodersAreIndependent(t *testing.T) {
	streamA := []byte("{\"response\":\"a1\"}\n{\"response\":\"a2\"}\n{\"error\":\"a3\"}\n")
	streamB := []byte("{\"response\":\"b1\"}\n{\"error\":\"b2\"}\n{\"response\":\"b3\"}")

	t.Run("interleaved arrivals", func(t *testing.T) {
		recA, recB := &recorder{}, &recorder{}
		decA := NewDecoder(recA.sink(), quiet())
		decB := NewDecoder(recB.sink(), quiet())

		for i := 0; i < max(len(streamA), len(streamB)); i += 3 {
			if i < len(streamA) {
				decA.Write(streamA[i:min(i+3, len(streamA))])
			}
			if i < len(streamB) {
				decB.Write(streamB[i:min(i+3, len(streamB))])
			}
		}
		decA.Close()
		decB.Close()

		wantA, _ := decodeChunks(t, streamA)
		wantB, _ := decodeChunks(t, streamB)
		if !reflect.DeepEqual(recA.events, wantA) || !reflect.DeepEqual(recB.events, wantB) {
			t.Fatalf("cross-contamination: A=%#v B=%#v", recA.events, recB.events)
		}
	})

	t.Run("parallel goroutines", func(t *testing.T) {
		const n = 8
		results := make([][]Event, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				payload := streamA
				if i%2 == 1 {
					payload = streamB
				}
				rec := &recorder{}
				Decode(context.Background(), &chunkReader{data: payload, size: i + 1}, rec.sink(), quiet())
				results[i] = rec.events
			}(i)
		}
		wg.Wait()

		wantA, _ := decodeChunks(t, streamA)
		wantB, _ := decodeChunks(t, streamB)
		for i, got := range results {
			want := wantA
			if i%2 == 1 {
				want = wantB
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("decoder %d: events = %#v", i, got)
			}
		}
	})
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`  {"response":"r","extra":1}  `))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Kind() != EventFragment || f.Event().Text != "r" {
		t.Fatalf("frame = %+v", f)
	}
	for _, line := range []string{"", "42", `"text"`, `["a"]`, "null"} {
		if _, err := ParseFrame([]byte(line)); err == nil {
			t.Fatalf("ParseFrame(%q): expected error", line)
		}
	}
	if (Frame{}).Event() != (Event{}) {
		t.Fatal("empty frame should map to zero event")
	}
	if EventError.String() != "error" || StateDraining.String() != "draining" {
		t.Fatal("unexpected String() output")
	}
}
