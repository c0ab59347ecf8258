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

package duplex

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chronista-club/unison-go/message"
	"github.com/chronista-club/unison-go/packet"
	"github.com/chronista-club/unison-go/transport"
	"github.com/chronista-club/unison-go/unisonerr"
)

// RawStream is the minimal byte-stream contract a Handle drives. A
// *quic.Stream satisfies it directly; tests drive a Handle over an
// in-memory net.Pipe pair instead.
type RawStream interface {
	io.Reader
	io.Writer
	// Close finishes the send half without affecting the receive
	// half, matching quic.Stream.Close.
	Close() error
}

// Handle is a live bidirectional stream: a send half and a receive
// half of one raw stream, framed with the packet codec and carrying
// message.Record values, plus an Open/HalfClosedLocal/
// HalfClosedRemote/Closed state machine.
type Handle struct {
	raw       RawStream
	streamID  uint64
	method    string
	createdAt time.Time
	cfg       packet.CodecConfig

	sendMu sync.Mutex
	recvMu sync.Mutex

	stateMu sync.Mutex
	state   State

	seq atomic.Uint64
}

// New wraps raw as a duplex handle for the given stream identity.
func New(raw RawStream, streamID uint64, method string, cfg packet.CodecConfig) *Handle {
	return &Handle{
		raw:       raw,
		streamID:  streamID,
		method:    method,
		createdAt: time.Now(),
		cfg:       cfg,
		state:     Open,
	}
}

// StreamHandle returns the handle's identity metadata.
func (h *Handle) StreamHandle() transport.StreamHandle {
	return transport.StreamHandle{StreamID: h.streamID, Method: h.method, CreatedAt: h.createdAt}
}

// State returns the handle's current lifecycle state.
func (h *Handle) State() State {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	return h.state
}

// IsActive reports whether both halves are still usable.
func (h *Handle) IsActive() bool {
	return h.State() == Open
}

func (h *Handle) transition(to State) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	// Closed is terminal; nothing transitions out of it.
	if h.state == Closed {
		return
	}
	h.state = to
}

// Send encodes rec and writes it to the send half. Send fails with a
// unisonerr.Connection error unless the handle is Open.
func (h *Handle) Send(rec message.Record) error {
	if h.State() != Open {
		return unisonerr.New(unisonerr.Connection, "not active")
	}

	body, err := message.Encode(rec)
	if err != nil {
		return unisonerr.Wrap(unisonerr.Serialization, err, "encode message record")
	}

	hdr := packet.Header{StreamID: h.streamID, SequenceNumber: h.seq.Add(1)}
	env, err := packet.NewBuilder(packet.KindData, h.cfg).
		StreamID(hdr.StreamID).
		Sequence(hdr.SequenceNumber).
		Build(body)
	if err != nil {
		return unisonerr.Wrap(unisonerr.FrameSerialization, err, "encode packet")
	}
	defer env.Release()

	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	if _, err := h.raw.Write(env.AsBytes()); err != nil {
		return unisonerr.Wrap(unisonerr.Quic, err, "write to stream")
	}
	return nil
}

// Receive reads and decodes one framed message.Record from the
// receive half.
//
// Reading zero bytes (EOF before a header is complete) transitions
// the handle to HalfClosedRemote and returns a "stream ended" error.
// Decoding a StreamEnd or StreamError record transitions to Closed
// and returns the corresponding error. Receive on a Closed handle fails
// with a unisonerr.Connection error without reading.
func (h *Handle) Receive() (message.Record, error) {
	if h.State() == Closed {
		return message.Record{}, unisonerr.New(unisonerr.Connection, "not active")
	}

	h.recvMu.Lock()
	defer h.recvMu.Unlock()

	hdrBuf := make([]byte, packet.HeaderSize)
	if _, err := io.ReadFull(h.raw, hdrBuf); err != nil {
		h.transition(HalfClosedRemote)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return message.Record{}, unisonerr.New(unisonerr.Connection, "stream ended")
		}
		return message.Record{}, unisonerr.Wrap(unisonerr.Quic, err, "read stream header")
	}

	hdr, err := packet.ParseHeader(hdrBuf)
	if err != nil {
		return message.Record{}, unisonerr.Wrap(unisonerr.FrameSerialization, err, "parse packet header")
	}

	body := make([]byte, hdr.OnWireLength())
	if _, err := io.ReadFull(h.raw, body); err != nil {
		h.transition(HalfClosedRemote)
		return message.Record{}, unisonerr.Wrap(unisonerr.Quic, err, "read stream payload")
	}

	wire := append(hdrBuf, body...)
	_, payload, err := packet.Decode(wire, h.cfg)
	if err != nil {
		return message.Record{}, unisonerr.Wrap(unisonerr.FrameSerialization, err, "decode packet")
	}

	rec, err := message.Decode(payload)
	if err != nil {
		return message.Record{}, unisonerr.Wrap(unisonerr.Serialization, err, "decode message record")
	}

	switch rec.Type {
	case message.TypeStreamEnd:
		h.transition(Closed)
		return rec, unisonerr.New(unisonerr.Connection, "stream ended by peer")
	case message.TypeStreamError:
		h.transition(Closed)
		var errBody struct {
			Message string `json:"message"`
		}
		_ = rec.Unmarshal(&errBody)
		return rec, unisonerr.New(unisonerr.Protocol, errBody.Message)
	}

	return rec, nil
}

// Close finishes the send half through the raw stream's Close and
// moves the handle to Closed, after which Send and Receive fail with a
// unisonerr.Connection error. It does not cancel the receive half:
// RawStream.Close leaves that half untouched, so a Receive already
// blocked in a read keeps waiting until the peer finishes or the
// stream fails. Close is idempotent.
func (h *Handle) Close() error {
	h.stateMu.Lock()
	alreadyClosed := h.state == Closed
	sendOpen := h.state == Open
	h.stateMu.Unlock()

	if alreadyClosed {
		return nil
	}

	var err error
	if sendOpen {
		h.transition(HalfClosedLocal)
	}
	if cerr := h.raw.Close(); cerr != nil {
		err = unisonerr.Wrap(unisonerr.Quic, cerr, "close stream")
	}
	h.transition(Closed)
	return err
}
