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

// Flags is the 16-bit header flag bitfield (§3.2).
type Flags uint16

const (
	FlagCompressed Flags = 1 << iota
	FlagEncrypted        // reserved
	FlagFragmented       // reserved
	FlagLastFragment     // reserved
	FlagPriorityHigh
	FlagRequiresAck
	FlagIsAck
	FlagKeepalive
	FlagError
	FlagMetadata
	FlagChecksum
)

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Set returns f with want's bits set.
func (f Flags) Set(want Flags) Flags {
	return f | want
}

// Clear returns f with want's bits cleared.
func (f Flags) Clear(want Flags) Flags {
	return f &^ want
}
