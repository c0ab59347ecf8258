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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronista-club/unison-go/internal/bufbytes"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Compression.Enabled = false

	hdr := Header{Kind: KindData, StreamID: 7, MessageID: 42, SequenceNumber: 1}
	payload := []byte("hello unison")

	wire, err := Encode(hdr, payload, cfg)
	require.NoError(t, err)
	assert.Len(t, wire, HeaderSize+len(payload))

	gotHdr, gotPayload, err := Decode(wire, cfg)
	require.NoError(t, err)
	assert.Equal(t, payload, gotPayload)
	assert.Equal(t, hdr.StreamID, gotHdr.StreamID)
	assert.Equal(t, hdr.MessageID, gotHdr.MessageID)
	assert.False(t, gotHdr.Flags.Has(FlagCompressed))
}

func TestEncodeCompressesAboveThreshold(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Compression.Threshold = 16

	// Highly compressible: long run of a single byte.
	payload := make([]byte, 4096)

	wire, err := Encode(Header{Kind: KindData}, payload, cfg)
	require.NoError(t, err)
	assert.Less(t, len(wire), HeaderSize+len(payload))

	hdr, got, err := Decode(wire, cfg)
	require.NoError(t, err)
	assert.True(t, hdr.Flags.Has(FlagCompressed))
	assert.Equal(t, payload, got)
}

func TestEncodeSkipsCompressionWhenItDoesNotShrink(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Compression.Threshold = 16

	// Random bytes are incompressible; zstd output will not be
	// smaller, so Encode must fall back to storing it raw.
	payload := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(payload)

	wire, err := Encode(Header{Kind: KindData}, payload, cfg)
	require.NoError(t, err)

	hdr, got, err := Decode(wire, cfg)
	require.NoError(t, err)
	assert.False(t, hdr.Flags.Has(FlagCompressed))
	assert.Equal(t, payload, got)
}

func TestEncodeAcceptsEveryDocumentedCompressionLevel(t *testing.T) {
	payload := make([]byte, 4096) // highly compressible: zeroed

	for _, level := range []int{1, 2, 3, 6, 7, 12, 13, 22} {
		cfg := DefaultCodecConfig()
		cfg.Compression.Threshold = 16
		cfg.Compression.Level = level

		wire, err := Encode(Header{Kind: KindData}, payload, cfg)
		require.NoErrorf(t, err, "level %d", level)

		_, got, err := Decode(wire, cfg)
		require.NoErrorf(t, err, "level %d", level)
		assert.Equal(t, payload, got)
	}
}

func TestEncodeBelowThresholdNeverCompresses(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Compression.Threshold = 2048

	payload := make([]byte, 64)
	wire, err := Encode(Header{Kind: KindData}, payload, cfg)
	require.NoError(t, err)

	hdr, _, err := Decode(wire, cfg)
	require.NoError(t, err)
	assert.False(t, hdr.Flags.Has(FlagCompressed))
}

func TestDecodeRejectsIncompatibleVersion(t *testing.T) {
	cfg := DefaultCodecConfig()
	wire, err := Encode(Header{Kind: KindData}, []byte("x"), cfg)
	require.NoError(t, err)

	wire[0] = Version + 1

	_, _, err = Decode(wire, cfg)
	var verErr *IncompatibleVersionError
	require.ErrorAs(t, err, &verErr)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	cfg := DefaultCodecConfig()
	_, _, err := Decode(make([]byte, HeaderSize-1), cfg)
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestChecksumMismatchDetected(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Checksum.Enabled = true

	wire, err := Encode(Header{Kind: KindData}, []byte("tamper me"), cfg)
	require.NoError(t, err)

	// Flip a payload byte without touching the checksum field.
	wire[len(wire)-1] ^= 0xFF

	_, _, err = Decode(wire, cfg)
	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestChecksumRequiredRejectsMissingFlag(t *testing.T) {
	writeCfg := DefaultCodecConfig()
	writeCfg.Checksum.Enabled = false

	wire, err := Encode(Header{Kind: KindData}, []byte("x"), writeCfg)
	require.NoError(t, err)

	readCfg := writeCfg
	readCfg.Checksum.Required = true

	_, _, err = Decode(wire, readCfg)
	var invalid *InvalidHeaderError
	require.ErrorAs(t, err, &invalid)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Compression.Enabled = false
	cfg.MaxPayloadSize = 16

	_, err := Encode(Header{Kind: KindData}, make([]byte, 17), cfg)
	var tooLarge *PacketTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 17, tooLarge.Size)
	assert.Equal(t, 16, tooLarge.Max)

	wire, err := Encode(Header{Kind: KindData}, make([]byte, 16), cfg)
	require.NoError(t, err)
	assert.Len(t, wire, HeaderSize+16)
}

func TestDecodeZeroCopyMatchesDecode(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Compression.Threshold = 16

	payload := make([]byte, 4096)
	rand.New(rand.NewSource(2)).Read(payload[:2048]) // incompressible half
	// leave the rest zeroed so the whole thing still compresses overall

	wire, err := Encode(Header{Kind: KindData}, payload, cfg)
	require.NoError(t, err)

	scratch := bufbytes.NewScratch()
	hdr, reader, err := DecodeZeroCopy(wire, scratch, cfg)
	require.NoError(t, err)

	gotHdr, gotPayload, err := Decode(wire, cfg)
	require.NoError(t, err)

	gotFromReader, err := reader.Read(len(gotPayload))
	require.NoError(t, err)

	assert.Equal(t, gotHdr.Flags, hdr.Flags)
	assert.Equal(t, gotPayload, gotFromReader)
}

func TestEnvelopeBuilderRoundTrip(t *testing.T) {
	cfg := DefaultCodecConfig()
	cfg.Compression.Enabled = false

	env, err := NewBuilder(KindData, cfg).
		StreamID(3).
		MessageID(9).
		ResponseTo(0).
		Build([]byte("ping"))
	require.NoError(t, err)
	defer env.Release()

	hdr, payload, err := env.Payload()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), hdr.StreamID)
	assert.Equal(t, uint64(9), hdr.MessageID)
	assert.Equal(t, []byte("ping"), payload)
	assert.NotZero(t, hdr.TimestampNs)
	assert.Equal(t, HeaderSize+len("ping"), env.Size())
}

func TestFlagsHasSetClear(t *testing.T) {
	var f Flags
	f = f.Set(FlagCompressed)
	assert.True(t, f.Has(FlagCompressed))
	f = f.Set(FlagRequiresAck)
	assert.True(t, f.Has(FlagCompressed))
	assert.True(t, f.Has(FlagRequiresAck))
	f = f.Clear(FlagCompressed)
	assert.False(t, f.Has(FlagCompressed))
	assert.True(t, f.Has(FlagRequiresAck))
}
