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

package transport

import "time"

// StreamHandle is the immutable metadata describing one QUIC stream:
// identity and method name, independent of the stream's current
// open/closed state. duplex.Handle.StreamHandle builds one from the
// handle's own fields, for callers that only need to know which
// stream they're looking at, not drive it.
type StreamHandle struct {
	StreamID  uint64
	Method    string
	CreatedAt time.Time
}
