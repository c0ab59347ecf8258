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

import "fmt"

// PacketTooLargeError is returned by Encode when the on-wire size of
// a packet would exceed the configured maximum.
type PacketTooLargeError struct {
	Size int
	Max  int
}

func (e *PacketTooLargeError) Error() string {
	return fmt.Sprintf("packet: size %d exceeds max %d", e.Size, e.Max)
}

// IncompatibleVersionError is returned by Decode when the header's
// version field doesn't match Version.
type IncompatibleVersionError struct {
	Version uint8
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("packet: incompatible version %d, want %d", e.Version, Version)
}

// InvalidHeaderError is returned by Decode when the header is
// malformed: a flag disagrees with its corresponding length field, or
// a length field doesn't fit the remaining buffer.
type InvalidHeaderError struct {
	Reason string
}

func (e *InvalidHeaderError) Error() string {
	return "packet: invalid header: " + e.Reason
}

// ChecksumMismatchError is returned by Decode when the recomputed
// CRC32 over the on-wire payload disagrees with the header's checksum
// field.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("packet: checksum mismatch: expected %08x, got %08x", e.Expected, e.Actual)
}

// DecompressionFailedError wraps a zstd decompression failure.
type DecompressionFailedError struct {
	Cause error
}

func (e *DecompressionFailedError) Error() string {
	return "packet: decompression failed: " + e.Cause.Error()
}

func (e *DecompressionFailedError) Unwrap() error {
	return e.Cause
}
