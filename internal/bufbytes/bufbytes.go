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

// Package bufbytes provides a reusable byte accumulator used as zstd
// decompression scratch space on the packet zero-copy decode path, so
// a caller decoding many packets in a loop doesn't allocate a fresh
// buffer per packet.
package bufbytes

// Scratch is a reusable destination buffer for an append-style
// decoder such as zstd's DecodeAll(src, dst).
type Scratch struct {
	buf []byte
}

// NewScratch returns an empty Scratch.
func NewScratch() *Scratch {
	return &Scratch{}
}

// Reserve returns the buffer's backing array truncated to zero
// length, ready to be passed as the dst argument of an append-style
// decoder.
func (s *Scratch) Reserve() []byte {
	return s.buf[:0]
}

// Commit records the (possibly reallocated) slice an append-style
// decoder returned, so the next Reserve reuses its backing array.
func (s *Scratch) Commit(b []byte) {
	s.buf = b
}

// Bytes returns the committed bytes. The slice is only valid until
// the next Reserve/Commit cycle.
func (s *Scratch) Bytes() []byte {
	return s.buf
}

// Reset clears the buffer for reuse, retaining its backing array.
func (s *Scratch) Reset() {
	s.buf = s.buf[:0]
}
