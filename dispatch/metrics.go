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

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chronista-club/unison-go/common"
)

var (
	dispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "Dispatch outcomes by method and result.",
		},
		[]string{"method", "outcome"},
	)

	handlerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: common.App,
			Subsystem: "dispatch",
			Name:      "handler_latency_seconds",
			Help:      "Handler latency by method.",
		},
		[]string{"method"},
	)
)

const (
	outcomeHandled  = "handled"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)
