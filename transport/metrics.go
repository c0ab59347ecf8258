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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chronista-club/unison-go/common"
)

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Subsystem: "transport",
		Name:      "active_connections",
		Help:      "Currently open QUIC connections.",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Subsystem: "transport",
		Name:      "active_streams",
		Help:      "Currently open bidirectional QUIC streams.",
	})
)

// StreamClosed decrements the active stream gauge. Callers driving a
// stream to completion (the server per accepted stream, the client
// façade's Call and OpenStream) call this once per stream opened via
// OpenStream or observed via AcceptStream; streams behind a handle
// returned by the client's OpenBidirectional are not counted down.
func StreamClosed() {
	activeStreams.Dec()
}
