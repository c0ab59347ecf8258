// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/chronista-club/unison-go/duplex"
	"github.com/chronista-club/unison-go/message"
)

// Process routes rec by its Type and drives whatever response belongs
// on stream.
//
//   - Request: looks up a unary handler by rec.Method, calls it with
//     rec.Payload, and writes back a Response or Error record.
//   - Stream: looks up a stream handler; the handler emits StreamData
//     records via handle.Send and the framework appends StreamEnd (or
//     a StreamError record carrying {"message": ...}, if the handler
//     returns an error) once it returns.
//   - BidirectionalStream: looks up a stream handler and hands it the
//     full duplex handle so it may also call handle.Receive.
//
// In every case a missing handler produces an Error record with text
// "Method not found: <method>" rather than a transport-level failure.
func (r *Registry) Process(ctx context.Context, rec message.Record, raw duplex.RawStream, streamID uint64) error {
	start := time.Now()
	handle := duplex.New(raw, streamID, rec.Method, r.cfg)

	switch rec.Type {
	case message.TypeRequest:
		return r.processRequest(ctx, rec, handle, start)
	case message.TypeStream, message.TypeBidirectionalStream:
		return r.processStream(ctx, rec, handle, start)
	default:
		dispatchOutcomes.WithLabelValues(rec.Method, outcomeError).Inc()
		return handle.Send(message.NewError(rec.ID, "unsupported message type: "+string(rec.Type)))
	}
}

func (r *Registry) processRequest(ctx context.Context, rec message.Record, handle *duplex.Handle, start time.Time) error {
	defer handle.Close()
	defer observeLatency(rec.Method, start)

	h, ok := r.lookupUnary(rec.Method)
	if !ok {
		dispatchOutcomes.WithLabelValues(rec.Method, outcomeNotFound).Inc()
		return handle.Send(message.NewError(rec.ID, "Method not found: "+rec.Method))
	}

	result, err := h(ctx, rec.Payload)
	if err != nil {
		dispatchOutcomes.WithLabelValues(rec.Method, outcomeError).Inc()
		return handle.Send(message.NewError(rec.ID, err.Error()))
	}

	resp, err := message.NewResponse(rec.ID, result)
	if err != nil {
		dispatchOutcomes.WithLabelValues(rec.Method, outcomeError).Inc()
		return handle.Send(message.NewError(rec.ID, err.Error()))
	}

	dispatchOutcomes.WithLabelValues(rec.Method, outcomeHandled).Inc()
	return handle.Send(resp)
}

func (r *Registry) processStream(ctx context.Context, rec message.Record, handle *duplex.Handle, start time.Time) error {
	defer handle.Close()
	defer observeLatency(rec.Method, start)

	h, ok := r.lookupStream(rec.Method)
	if !ok {
		dispatchOutcomes.WithLabelValues(rec.Method, outcomeNotFound).Inc()
		return handle.Send(message.NewError(rec.ID, "Method not found: "+rec.Method))
	}

	if err := h(ctx, rec.Payload, handle); err != nil {
		dispatchOutcomes.WithLabelValues(rec.Method, outcomeError).Inc()
		body, _ := json.Marshal(struct {
			Message string `json:"message"`
		}{Message: err.Error()})
		return handle.Send(message.Record{ID: rec.ID, Type: message.TypeStreamError, Payload: body})
	}

	dispatchOutcomes.WithLabelValues(rec.Method, outcomeHandled).Inc()
	return handle.Send(message.Record{ID: rec.ID, Type: message.TypeStreamEnd})
}

func observeLatency(method string, start time.Time) {
	handlerLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
