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
	"sync"

	"github.com/klauspost/compress/zstd"
)

// encoders caches one *zstd.Encoder per compression level. zstd
// encoders are expensive to construct (they allocate tables sized to
// the window) but EncodeAll is safe to call concurrently on a shared
// encoder, so one per level, reused for the process lifetime, is the
// right tradeoff for a packet codec invoked per-message.
var (
	encodersMu sync.Mutex
	encoders   = map[int]*zstd.Encoder{}

	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func encoderForLevel(level int) (*zstd.Encoder, error) {
	encodersMu.Lock()
	defer encodersMu.Unlock()

	if enc, ok := encoders[level]; ok {
		return enc, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(toEncoderLevel(level)))
	if err != nil {
		return nil, err
	}
	encoders[level] = enc
	return enc, nil
}

// toEncoderLevel maps CompressionConfig.Level's documented 1-22 range
// onto klauspost/compress/zstd's four encoder speed tiers
// (SpeedFastest..SpeedBestCompression), so every value in that
// documented domain produces a valid encoder instead of failing
// WithEncoderLevel's own 1-4 validation.
func toEncoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 12:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func sharedDecoder() (*zstd.Decoder, error) {
	var err error
	decoderOnce.Do(func() {
		decoder, err = zstd.NewReader(nil)
	})
	if err != nil {
		return nil, err
	}
	return decoder, nil
}

func zstdCompress(level int, src, dst []byte) ([]byte, error) {
	enc, err := encoderForLevel(level)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(src, dst), nil
}

func zstdDecompress(src, dst []byte) ([]byte, error) {
	dec, err := sharedDecoder()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll(src, dst)
	if err != nil {
		return nil, &DecompressionFailedError{Cause: err}
	}
	return out, nil
}
