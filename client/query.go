package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/sweetpotato0/ragdeck/api"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/stream"
)

// NDJSONContentType is what the streaming endpoint is asked to return.
const NDJSONContentType = "application/x-ndjson"

// QueryAPI runs retrieval queries.
type QueryAPI struct {
	c *Client
}

// Search runs a one-shot query and returns the full answer.
func (q *QueryAPI) Search(ctx context.Context, req api.QueryRequest) (api.QueryResponse, error) {
	var out api.QueryResponse
	err := q.c.doJSON(ctx, http.MethodPost, "/query", nil, req, &out, q.c.timeout)
	return out, err
}

// Stream runs a streaming query and feeds every frame to sink until the
// response ends or ctx is cancelled. A 401 before any bytes arrive is
// returned as a *TransportError with OutcomeReauthenticate and the sink is
// never called.
func (q *QueryAPI) Stream(ctx context.Context, req api.QueryRequest, sink stream.Sink) (stream.Stats, error) {
	body, err := q.open(ctx, req)
	if err != nil {
		return stream.Stats{}, err
	}
	defer body.Close()
	return stream.Decode(ctx, body, sink, q.c.streamOpts...)
}

// Events is the pull-style form of Stream. A failure to open the stream is
// yielded once as an error.
func (q *QueryAPI) Events(ctx context.Context, req api.QueryRequest) iter.Seq2[stream.Event, error] {
	return func(yield func(stream.Event, error) bool) {
		body, err := q.open(ctx, req)
		if err != nil {
			yield(stream.Event{}, err)
			return
		}
		defer body.Close()
		for ev, err := range stream.Events(ctx, body, q.c.streamOpts...) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// open issues the streaming request without a client-side timeout.
func (q *QueryAPI) open(ctx context.Context, req api.QueryRequest) (io.ReadCloser, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("client: encode stream query: %w", err)
	}
	hreq, err := q.c.newRequest(ctx, http.MethodPost, "/query/stream", nil, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", NDJSONContentType)

	resp, err := q.c.send(hreq)
	if err != nil {
		return nil, err
	}
	// http.NoBody is a successful empty stream and decodes to no events.
	if resp.Body == nil {
		return nil, errorskg.ErrEmptyBody
	}
	return resp.Body, nil
}
