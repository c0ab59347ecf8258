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

package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chronista-club/unison-go/common"
)

// Counters are a service instance's request/error/byte accounting,
// exported as Prometheus metrics. Each *Service gets its own set,
// built fresh in New so that two services in one process don't share
// label values.
type Counters struct {
	Requests *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	BytesIn  prometheus.Counter
	BytesOut prometheus.Counter
}

// newCounters registers a Counters set under the given service name.
// promauto panics on duplicate registration, so name must be unique
// per process.
func newCounters(name string) Counters {
	return Counters{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   common.App,
			Subsystem:   "service",
			Name:        "requests_total",
			Help:        "Requests handled by a service, by method.",
			ConstLabels: prometheus.Labels{"service": name},
		}, []string{"method"}),
		Errors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   common.App,
			Subsystem:   "service",
			Name:        "errors_total",
			Help:        "Requests that returned an error, by method.",
			ConstLabels: prometheus.Labels{"service": name},
		}, []string{"method"}),
		BytesIn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   common.App,
			Subsystem:   "service",
			Name:        "bytes_in_total",
			Help:        "Bytes of request payload received.",
			ConstLabels: prometheus.Labels{"service": name},
		}),
		BytesOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   common.App,
			Subsystem:   "service",
			Name:        "bytes_out_total",
			Help:        "Bytes of response payload sent.",
			ConstLabels: prometheus.Labels{"service": name},
		}),
	}
}
