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

// Package message defines the application-level record carried inside
// a packet's payload: a method name, a record kind, and an opaque JSON
// body. Packets move bytes; messages give those bytes meaning to
// dispatch.
package message

import (
	json "github.com/goccy/go-json"
)

// Type tags what a Record represents in the request/response/stream
// lifecycle.
type Type string

const (
	TypeRequest             Type = "request"
	TypeResponse            Type = "response"
	TypeStream              Type = "stream"
	TypeStreamData          Type = "stream_data"
	TypeStreamEnd           Type = "stream_end"
	TypeStreamError         Type = "stream_error"
	TypeBidirectionalStream Type = "bidirectional_stream"
	TypeStreamSend          Type = "stream_send"
	TypeStreamReceive       Type = "stream_receive"
	TypeError               Type = "error"
)

// Record is the application-level message a packet payload decodes
// to. ID correlates requests, responses, and stream frames that
// belong to the same logical exchange; it is independent of the
// packet layer's message_id/response_to header fields, which correlate
// at the transport level.
type Record struct {
	ID      uint64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals r to JSON using goccy/go-json.
func Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// Decode unmarshals raw into a Record.
func Decode(raw []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// NewRequest builds a Request record carrying payload as its JSON body.
func NewRequest(id uint64, method string, payload any) (Record, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, Method: method, Type: TypeRequest, Payload: body}, nil
}

// NewResponse builds a Response record answering the request id.
func NewResponse(id uint64, payload any) (Record, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, Type: TypeResponse, Payload: body}, nil
}

// NewError builds an Error record answering the request id, carrying
// msg as its JSON body under the "message" key.
func NewError(id uint64, msg string) Record {
	body, _ := json.Marshal(struct {
		Message string `json:"message"`
	}{Message: msg})
	return Record{ID: id, Type: TypeError, Payload: body}
}

// Unmarshal decodes r.Payload into v.
func (r Record) Unmarshal(v any) error {
	return json.Unmarshal(r.Payload, v)
}
