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
	"hash/crc32"

	"github.com/chronista-club/unison-go/internal/bufbytes"
	"github.com/chronista-club/unison-go/internal/zerocopy"
)

// Encode serializes hdr and raw into on-wire bytes, per §4.1's encode
// contract.
//
// hdr.Version, hdr.PayloadLength, hdr.CompressedLength, hdr.Checksum
// and the COMPRESSED/CHECKSUM flags are all set or cleared by Encode
// itself; any values the caller set in those fields are overwritten.
func Encode(hdr Header, raw []byte, cfg CodecConfig) ([]byte, error) {
	hdr.Version = Version
	hdr.PayloadLength = uint32(len(raw))
	hdr.Flags = hdr.Flags.Clear(FlagCompressed).Clear(FlagChecksum)
	hdr.CompressedLength = 0

	onWire := raw
	if cfg.Compression.ShouldCompress(len(raw)) {
		compressed, err := zstdCompress(cfg.Compression.Level, raw, nil)
		if err != nil {
			return nil, err
		}
		// "did not shrink" includes ties: only a strictly smaller
		// compressed form is worth the decompression cost on the
		// other end.
		if len(compressed) < len(raw) {
			onWire = compressed
			hdr.CompressedLength = uint32(len(compressed))
			hdr.Flags = hdr.Flags.Set(FlagCompressed)
		}
	}

	if cfg.Checksum.Enabled {
		hdr.Checksum = crc32.ChecksumIEEE(onWire)
		hdr.Flags = hdr.Flags.Set(FlagChecksum)
	} else {
		hdr.Checksum = 0
	}

	if max := cfg.maxPayloadSize(); len(onWire) > max {
		return nil, &PacketTooLargeError{Size: len(onWire), Max: max}
	}

	total := HeaderSize + len(onWire)
	buf := make([]byte, total)
	hdr.PutTo(buf)
	copy(buf[HeaderSize:], onWire)
	return buf, nil
}

// Decode parses wire into a Header and an owned copy of the decoded
// (decompressed, if applicable) payload, per §4.1's decode contract.
func Decode(wire []byte, cfg CodecConfig) (Header, []byte, error) {
	hdr, onWire, err := decodeHeaderAndSlice(wire, cfg)
	if err != nil {
		return Header{}, nil, err
	}

	if !hdr.Flags.Has(FlagCompressed) {
		owned := make([]byte, len(onWire))
		copy(owned, onWire)
		return hdr, owned, nil
	}

	out, err := zstdDecompress(onWire, nil)
	if err != nil {
		return Header{}, nil, err
	}
	return hdr, out, nil
}

// DecodeZeroCopy parses wire like Decode, but never allocates a fresh
// payload buffer for the uncompressed case — the returned
// zerocopy.Reader borrows directly from wire — and reuses scratch as
// the decompression destination for the compressed case. Callers that
// process a packet once and discard it should prefer this path.
func DecodeZeroCopy(wire []byte, scratch *bufbytes.Scratch, cfg CodecConfig) (Header, zerocopy.Reader, error) {
	hdr, onWire, err := decodeHeaderAndSlice(wire, cfg)
	if err != nil {
		return Header{}, nil, err
	}

	if !hdr.Flags.Has(FlagCompressed) {
		return hdr, zerocopy.NewBuffer(onWire), nil
	}

	scratch.Reset()
	out, err := zstdDecompress(onWire, scratch.Reserve())
	if err != nil {
		return Header{}, nil, err
	}
	scratch.Commit(out)
	return hdr, zerocopy.NewBuffer(scratch.Bytes()), nil
}

// decodeHeaderAndSlice validates the header and slices the on-wire
// payload view, shared by Decode and DecodeZeroCopy.
func decodeHeaderAndSlice(wire []byte, cfg CodecConfig) (Header, []byte, error) {
	hdr, err := ParseHeader(wire)
	if err != nil {
		return Header{}, nil, err
	}

	if hdr.Version != Version {
		return Header{}, nil, &IncompatibleVersionError{Version: hdr.Version}
	}

	max := cfg.maxPayloadSize()
	if int(hdr.PayloadLength) > max || int(hdr.CompressedLength) > max {
		return Header{}, nil, &InvalidHeaderError{Reason: "payload length exceeds configured maximum"}
	}

	if hdr.Flags.Has(FlagCompressed) != (hdr.CompressedLength > 0) {
		return Header{}, nil, &InvalidHeaderError{Reason: "COMPRESSED flag disagrees with compressed_length"}
	}

	if cfg.Checksum.Required && !hdr.Flags.Has(FlagChecksum) {
		return Header{}, nil, &InvalidHeaderError{Reason: "checksum required but CHECKSUM flag unset"}
	}

	wireLen := int(hdr.OnWireLength())
	if len(wire) < HeaderSize+wireLen {
		return Header{}, nil, &InvalidHeaderError{Reason: "buffer shorter than payload_length/compressed_length"}
	}
	onWire := wire[HeaderSize : HeaderSize+wireLen]

	if hdr.Flags.Has(FlagChecksum) {
		actual := crc32.ChecksumIEEE(onWire)
		if actual != hdr.Checksum {
			return Header{}, nil, &ChecksumMismatchError{Expected: hdr.Checksum, Actual: actual}
		}
	}

	return hdr, onWire, nil
}
