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

// DefaultMaxPayloadSize is the default ceiling on payload_length and
// compressed_length a decoder accepts (§3.1).
const DefaultMaxPayloadSize = 16 << 20 // 16 MiB

// CompressionConfig controls whether and when Encode reaches for zstd.
type CompressionConfig struct {
	Enabled   bool
	Threshold int // bytes; compression is only attempted at or above this size
	Level     int // zstd level, 1-22; mapped onto the encoder's speed tiers by toEncoderLevel
}

// DefaultCompressionConfig returns the package's default compression policy.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{Enabled: true, Threshold: 2048, Level: 1}
}

// ShouldCompress reports whether a payload of size n is eligible for
// compression under this config. Eligibility alone doesn't guarantee
// the COMPRESSED flag ends up set — Encode still declines to use the
// compressed form if zstd fails to shrink the payload.
func (c CompressionConfig) ShouldCompress(n int) bool {
	return c.Enabled && n >= c.Threshold
}

// ChecksumConfig controls whether Encode computes a CRC32 over the
// on-wire payload and whether Decode demands one be present.
type ChecksumConfig struct {
	Enabled  bool
	Required bool // Decode rejects packets missing the CHECKSUM flag
}

// DefaultChecksumConfig returns the package's default checksum policy: disabled.
func DefaultChecksumConfig() ChecksumConfig {
	return ChecksumConfig{}
}

// CodecConfig bundles the knobs Encode/Decode need.
type CodecConfig struct {
	Compression    CompressionConfig
	Checksum       ChecksumConfig
	MaxPayloadSize int
}

// DefaultCodecConfig returns the package's default codec configuration.
func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		Compression:    DefaultCompressionConfig(),
		Checksum:       DefaultChecksumConfig(),
		MaxPayloadSize: DefaultMaxPayloadSize,
	}
}

func (c CodecConfig) maxPayloadSize() int {
	if c.MaxPayloadSize <= 0 {
		return DefaultMaxPayloadSize
	}
	return c.MaxPayloadSize
}
