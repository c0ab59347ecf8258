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

import "github.com/chronista-club/unison-go/internal/fasttime"

// Builder assembles a Header field-by-field and encodes it alongside
// a payload. Builder and EnvelopeFromBytes are the only supported
// ways to produce an Envelope — callers never hand-construct a Header
// and call Encode directly outside this package.
type Builder struct {
	hdr Header
	cfg CodecConfig
}

// NewBuilder starts a Builder for the given Kind, using cfg for the
// eventual Encode call.
func NewBuilder(kind Kind, cfg CodecConfig) *Builder {
	return &Builder{hdr: Header{Version: Version, Kind: kind}, cfg: cfg}
}

func (b *Builder) Sequence(n uint64) *Builder {
	b.hdr.SequenceNumber = n
	return b
}

func (b *Builder) StreamID(id uint64) *Builder {
	b.hdr.StreamID = id
	return b
}

func (b *Builder) MessageID(id uint64) *Builder {
	b.hdr.MessageID = id
	return b
}

func (b *Builder) ResponseTo(id uint64) *Builder {
	b.hdr.ResponseTo = id
	return b
}

func (b *Builder) Flags(f Flags) *Builder {
	b.hdr.Flags = f
	return b
}

func (b *Builder) SetFlag(f Flags) *Builder {
	b.hdr.Flags = b.hdr.Flags.Set(f)
	return b
}

// Build stamps the current wall-clock timestamp onto the header and
// encodes payload into a new Envelope. The timestamp comes from
// internal/fasttime rather than time.Now(), trading a little
// precision for not calling into the OS clock on every packet built.
func (b *Builder) Build(payload []byte) (*Envelope, error) {
	b.hdr.TimestampNs = fasttime.UnixNano()
	return NewEnvelope(b.hdr, payload, b.cfg)
}
