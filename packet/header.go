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

// Package packet implements the wire-level packet format: a fixed
// header followed by an opaque payload byte range, with optional
// zstd compression and CRC32 integrity checking. The package is pure
// — it performs no I/O of its own.
package packet

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Kind tags the purpose of a packet on the wire.
type Kind uint8

const (
	KindData Kind = iota
	KindControl
	KindHeartbeat
	KindHandshake
)

// CustomKind returns a user-defined Kind tag. Values below 16 are
// reserved for the four kinds above and any future core additions.
func CustomKind(n uint8) Kind {
	return Kind(16 + n)
}

// Version is the only wire version this package speaks. Peers
// advertising any other version fail decode with *IncompatibleVersionError.
const Version uint8 = 1

// HeaderSize is the fixed, little-endian encoded header length. 64 is
// chosen so every multi-byte field lands on a naturally aligned
// offset below, with 8 bytes reserved for forward compatibility.
const HeaderSize = 64

const (
	offVersion     = 0
	offKind        = 1
	offFlags       = 2
	offPayloadLen  = 4
	offCompLen     = 8
	offChecksum    = 12
	offSequence    = 16
	offTimestamp   = 24
	offStreamID    = 32
	offMessageID   = 40
	offResponseTo  = 48
	offReserved    = 56
)

// Header is the fixed, POD packet header of §3.1.
type Header struct {
	Version           uint8
	Kind              Kind
	Flags             Flags
	PayloadLength     uint32
	CompressedLength  uint32
	Checksum          uint32
	SequenceNumber    uint64
	TimestampNs       int64
	StreamID          uint64
	MessageID         uint64
	ResponseTo        uint64
}

// OnWireLength returns the number of payload bytes that actually
// travel on the wire for this header: CompressedLength when
// FlagCompressed is set, PayloadLength otherwise.
func (h *Header) OnWireLength() uint32 {
	if h.Flags.Has(FlagCompressed) {
		return h.CompressedLength
	}
	return h.PayloadLength
}

// PutTo serializes h into buf[:HeaderSize]. buf must be at least
// HeaderSize bytes.
func (h *Header) PutTo(buf []byte) {
	_ = buf[HeaderSize-1]
	buf[offVersion] = h.Version
	buf[offKind] = uint8(h.Kind)
	binary.LittleEndian.PutUint16(buf[offFlags:], uint16(h.Flags))
	binary.LittleEndian.PutUint32(buf[offPayloadLen:], h.PayloadLength)
	binary.LittleEndian.PutUint32(buf[offCompLen:], h.CompressedLength)
	binary.LittleEndian.PutUint32(buf[offChecksum:], h.Checksum)
	binary.LittleEndian.PutUint64(buf[offSequence:], h.SequenceNumber)
	binary.LittleEndian.PutUint64(buf[offTimestamp:], uint64(h.TimestampNs))
	binary.LittleEndian.PutUint64(buf[offStreamID:], h.StreamID)
	binary.LittleEndian.PutUint64(buf[offMessageID:], h.MessageID)
	binary.LittleEndian.PutUint64(buf[offResponseTo:], h.ResponseTo)
	for i := offReserved; i < HeaderSize; i++ {
		buf[i] = 0
	}
}

// ErrShortHeader is returned by ParseHeader when buf is smaller than
// HeaderSize.
var ErrShortHeader = errors.New("packet: buffer shorter than header size")

// ParseHeader decodes the first HeaderSize bytes of buf into a Header.
// It performs no validation beyond length; callers validate version,
// flag consistency, and length bounds separately (see Decode).
func ParseHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, ErrShortHeader
	}
	h.Version = buf[offVersion]
	h.Kind = Kind(buf[offKind])
	h.Flags = Flags(binary.LittleEndian.Uint16(buf[offFlags:]))
	h.PayloadLength = binary.LittleEndian.Uint32(buf[offPayloadLen:])
	h.CompressedLength = binary.LittleEndian.Uint32(buf[offCompLen:])
	h.Checksum = binary.LittleEndian.Uint32(buf[offChecksum:])
	h.SequenceNumber = binary.LittleEndian.Uint64(buf[offSequence:])
	h.TimestampNs = int64(binary.LittleEndian.Uint64(buf[offTimestamp:]))
	h.StreamID = binary.LittleEndian.Uint64(buf[offStreamID:])
	h.MessageID = binary.LittleEndian.Uint64(buf[offMessageID:])
	h.ResponseTo = binary.LittleEndian.Uint64(buf[offResponseTo:])
	return h, nil
}
