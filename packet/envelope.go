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

package packet

import (
	"github.com/valyala/bytebufferpool"

	"github.com/chronista-club/unison-go/internal/bufbytes"
	"github.com/chronista-club/unison-go/internal/zerocopy"
)

var envelopePool bytebufferpool.Pool

// Envelope owns an encoded on-wire byte buffer borrowed from a shared
// pool. Multiple callers that each only need to read the bytes (e.g.
// handing the same encoded bytes to a logger and to the QUIC write
// path) can share one Envelope; Release returns the buffer to the
// pool once the last reader is done with it.
//
// Go has no destructor to hook "last reference dropped", so ownership
// here is a borrow/return discipline the caller must follow
// explicitly.
type Envelope struct {
	buf *bytebufferpool.ByteBuffer
	cfg CodecConfig
}

// NewEnvelope encodes hdr/raw into a freshly borrowed Envelope.
func NewEnvelope(hdr Header, raw []byte, cfg CodecConfig) (*Envelope, error) {
	wire, err := Encode(hdr, raw, cfg)
	if err != nil {
		return nil, err
	}
	bb := envelopePool.Get()
	bb.Set(wire)
	return &Envelope{buf: bb, cfg: cfg}, nil
}

// EnvelopeFromBytes wraps already-encoded on-wire bytes, copying them
// into a pooled buffer. This and Builder.Build are the only supported
// ways to construct an Envelope.
func EnvelopeFromBytes(wire []byte, cfg CodecConfig) *Envelope {
	bb := envelopePool.Get()
	bb.Set(wire)
	return &Envelope{buf: bb, cfg: cfg}
}

// Header decodes and returns the envelope's header.
func (e *Envelope) Header() (Header, error) {
	return ParseHeader(e.buf.B)
}

// Payload fully decodes the envelope's payload, decompressing and
// validating as Decode does.
func (e *Envelope) Payload() (Header, []byte, error) {
	return Decode(e.buf.B, e.cfg)
}

// PayloadZeroCopy decodes the envelope's payload using scratch as
// decompression scratch space, avoiding an allocation in the common
// uncompressed case.
func (e *Envelope) PayloadZeroCopy(scratch *bufbytes.Scratch) (Header, zerocopy.Reader, error) {
	return DecodeZeroCopy(e.buf.B, scratch, e.cfg)
}

// AsBytes returns the full on-wire byte slice. The slice is only
// valid until Release.
func (e *Envelope) AsBytes() []byte {
	return e.buf.B
}

// Size returns the total on-wire size in bytes.
func (e *Envelope) Size() int {
	return e.buf.Len()
}

// Release returns the envelope's buffer to the shared pool. Callers
// must not use the Envelope after calling Release.
func (e *Envelope) Release() {
	envelopePool.Put(e.buf)
	e.buf = nil
}
