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

// Package duplex implements the bidirectional stream handle: a pair
// of send/receive halves layered over one raw byte stream, framed with
// the packet codec and carrying message.Record values.
package duplex

// State is the duplex handle's four-state lifecycle.
type State int

const (
	// Open: both halves usable.
	Open State = iota
	// HalfClosedLocal: the local Close has finished the send half.
	HalfClosedLocal
	// HalfClosedRemote: the peer finished its send half; Receive
	// returns an "ended by peer" error.
	HalfClosedRemote
	// Closed: Close has run, or the peer sent StreamEnd/StreamError;
	// Send/Receive fail.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfClosedLocal:
		return "half_closed_local"
	case HalfClosedRemote:
		return "half_closed_remote"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
