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

// Package transport wraps a QUIC endpoint with the address parsing,
// certificate resolution, and tuning the core fixes for every unison
// connection.
package transport

import (
	"time"

	"github.com/quic-go/quic-go"

	"github.com/chronista-club/unison-go/common"
)

// Fixed tuning, not configurable per-connection.
const (
	MaxIdleTimeout     = 60 * time.Second
	KeepAlive          = 10 * time.Second
	MinIncomingStreams = 1000

	// effectivelyUnlimitedUniStreams stands in for "unlimited": quic-go
	// treats <= 0 as "use the library default" rather than "no cap",
	// so a large fixed number is the only way to get a cap that in
	// practice is never hit.
	effectivelyUnlimitedUniStreams = 1 << 20

	// InitialRTT documents the core's target initial round-trip
	// estimate. quic-go does not expose this as a Config knob (it
	// derives its own estimate during the handshake); this constant
	// exists so the target is written down somewhere, not to be
	// wired into quic.Config.
	InitialRTT = 100 * time.Millisecond
)

// ALPN is the single protocol token unison speaks over QUIC.
const ALPN = common.ALPN

// QUICConfig returns the quic.Config every unison endpoint uses:
// unlimited unidirectional streams and at least MinIncomingStreams
// concurrent bidirectional streams.
func QUICConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:        MaxIdleTimeout,
		KeepAlivePeriod:       KeepAlive,
		MaxIncomingStreams:    MinIncomingStreams,
		MaxIncomingUniStreams: effectivelyUnlimitedUniStreams,
	}
}
