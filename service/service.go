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

// Package service layers a named, versioned RPC endpoint over a
// duplex.Handle: built-in ping/get_stats/get_capabilities methods,
// application-defined request handling, periodic heartbeats, and a
// graceful shutdown envelope.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/chronista-club/unison-go/duplex"
	"github.com/chronista-club/unison-go/internal/fasttime"
	"github.com/chronista-club/unison-go/internal/rescue"
	"github.com/chronista-club/unison-go/message"
	"github.com/chronista-club/unison-go/unisonerr"
)

const (
	methodPing            = "ping"
	methodGetStats        = "get_stats"
	methodGetCapabilities = "get_capabilities"
	methodShutdown        = "service_shutdown"
	methodHeartbeat       = "heartbeat"

	defaultServiceType = "rpc_service"
)

// Config describes a service's identity and operating limits.
type Config struct {
	Name    string
	Version string
	Type    string // service_type reported in metadata envelopes; defaults to "rpc_service".

	Priority     int
	BufferLimit  int
	MessageLimit int

	HeartbeatInterval time.Duration
}

func (c Config) serviceType() string {
	if c.Type == "" {
		return defaultServiceType
	}
	return c.Type
}

// RequestHandler answers a request the built-in methods don't cover.
type RequestHandler func(ctx context.Context, method string, payload []byte) (any, error)

// Service wraps a live duplex handle with a name, version, the three
// built-in methods, and operational counters. Its background
// heartbeat goroutine is panic-guarded like every other long-lived
// goroutine in this module.
type Service struct {
	handle        *duplex.Handle
	cfg           Config
	counters      Counters
	handleRequest RequestHandler
	startedAt     time.Time

	mu               sync.Mutex
	requestsByMethod map[string]uint64
	errorsByMethod   map[string]uint64
	bytesIn          uint64
	bytesOut         uint64
}

// New builds a Service around handle. handleRequest answers any
// method not already covered by ping/get_stats/get_capabilities.
func New(handle *duplex.Handle, cfg Config, handleRequest RequestHandler) *Service {
	return &Service{
		handle:           handle,
		cfg:              cfg,
		counters:         newCounters(cfg.Name),
		handleRequest:    handleRequest,
		startedAt:        time.Now(),
		requestsByMethod: make(map[string]uint64),
		errorsByMethod:   make(map[string]uint64),
	}
}

// Dispatch answers one request record, routing to a built-in method
// or handleRequest, and returns the response or error record to send
// back. It does not itself call handle.Send; callers (typically
// dispatch.Registry through a unary handler adapter) decide framing.
func (s *Service) Dispatch(ctx context.Context, rec message.Record) (message.Record, error) {
	s.recordRequest(rec.Method, len(rec.Payload))

	var (
		result any
		err    error
	)
	switch rec.Method {
	case methodPing:
		result, err = s.ping(rec.Payload)
	case methodGetStats:
		result, err = s.getStats(), nil
	case methodGetCapabilities:
		result, err = s.getCapabilities(), nil
	default:
		if s.handleRequest == nil {
			err = unisonerr.New(unisonerr.HandlerNotFound, "no handler for method "+rec.Method)
		} else {
			result, err = s.handleRequest(ctx, rec.Method, rec.Payload)
		}
	}

	if err != nil {
		s.recordError(rec.Method)
		return message.NewError(rec.ID, err.Error()), nil
	}

	resp, err := message.NewResponse(rec.ID, result)
	if err != nil {
		s.recordError(rec.Method)
		return message.NewError(rec.ID, err.Error()), nil
	}
	s.recordBytesOut(len(resp.Payload))
	return resp, nil
}

type pingRequest struct {
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
}

type pingResponse struct {
	Message    string `json:"message"`
	Sequence   int    `json:"sequence"`
	ServerInfo string `json:"server_info"`
}

func (s *Service) ping(payload []byte) (any, error) {
	var req pingRequest
	if len(payload) > 0 {
		if err := (message.Record{Payload: payload}).Unmarshal(&req); err != nil {
			return nil, unisonerr.Wrap(unisonerr.Serialization, err, "decode ping payload")
		}
	}
	return pingResponse{
		Message:    "Pong: " + req.Message,
		Sequence:   req.Sequence,
		ServerInfo: s.cfg.Name + "/" + s.cfg.Version,
	}, nil
}

// Stats is the get_stats response body: a snapshot of the service's
// uptime and request/error/byte counters.
type Stats struct {
	UptimeSeconds    float64           `json:"uptime_seconds"`
	RequestsTotal    uint64            `json:"requests_total"`
	ErrorsTotal      uint64            `json:"errors_total"`
	BytesIn          uint64            `json:"bytes_in"`
	BytesOut         uint64            `json:"bytes_out"`
	RequestsByMethod map[string]uint64 `json:"requests_by_method"`
}

func (s *Service) getStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMethod := make(map[string]uint64, len(s.requestsByMethod))
	var requestsTotal, errorsTotal uint64
	for method, n := range s.requestsByMethod {
		byMethod[method] = n
		requestsTotal += n
	}
	for _, n := range s.errorsByMethod {
		errorsTotal += n
	}

	return Stats{
		UptimeSeconds:    time.Since(s.startedAt).Seconds(),
		RequestsTotal:    requestsTotal,
		ErrorsTotal:      errorsTotal,
		BytesIn:          s.bytesIn,
		BytesOut:         s.bytesOut,
		RequestsByMethod: byMethod,
	}
}

// Capabilities is the get_capabilities response body.
type Capabilities struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Priority int      `json:"priority"`
	Methods  []string `json:"methods"`
}

func (s *Service) getCapabilities() Capabilities {
	return Capabilities{
		Name:     s.cfg.Name,
		Version:  s.cfg.Version,
		Priority: s.cfg.Priority,
		Methods:  []string{methodPing, methodGetStats, methodGetCapabilities},
	}
}

// Envelope is the metadata wrapper WrapWithMetadata produces around
// an outgoing value.
type Envelope struct {
	Data           any            `json:"data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ServiceType    string         `json:"service_type"`
	ServiceName    string         `json:"service_name"`
	ServiceVersion string         `json:"service_version"`
	TimestampNanos int64          `json:"timestamp"`
}

// WrapWithMetadata wraps data with the service's identity and a
// timestamp. Heartbeat and Shutdown send their payloads in this
// envelope; Dispatch returns responses unwrapped.
func (s *Service) WrapWithMetadata(data any, metadata map[string]any) Envelope {
	return Envelope{
		Data:           data,
		Metadata:       metadata,
		ServiceType:    s.cfg.serviceType(),
		ServiceName:    s.cfg.Name,
		ServiceVersion: s.cfg.Version,
		TimestampNanos: fasttime.UnixNano(),
	}
}

// Heartbeat starts a background goroutine that sends a heartbeat
// envelope over the handle every cfg.HeartbeatInterval, until ctx is
// cancelled or the handle stops being active. The goroutine is
// panic-guarded.
func (s *Service) Heartbeat(ctx context.Context) {
	if s.cfg.HeartbeatInterval <= 0 {
		return
	}
	go func() {
		defer rescue.HandleCrash()

		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.handle.IsActive() {
					return
				}
				beat := s.WrapWithMetadata(map[string]any{"type": "heartbeat"}, nil)
				rec, err := message.NewRequest(0, methodHeartbeat, beat)
				if err != nil {
					continue
				}
				rec.Type = message.TypeStreamData
				_ = s.handle.Send(rec)
			}
		}
	}()
}

// Shutdown sends a terminal service_shutdown envelope and closes the
// underlying handle. Shutdown is safe to call even if the peer has
// already gone away; the close always happens.
func (s *Service) Shutdown() error {
	rec, err := message.NewRequest(0, methodShutdown, s.WrapWithMetadata(nil, nil))
	if err == nil {
		rec.Type = message.TypeStreamEnd
		_ = s.handle.Send(rec)
	}
	return s.handle.Close()
}

func (s *Service) recordRequest(method string, payloadLen int) {
	s.counters.Requests.WithLabelValues(method).Inc()
	s.counters.BytesIn.Add(float64(payloadLen))

	s.mu.Lock()
	s.requestsByMethod[method]++
	s.bytesIn += uint64(payloadLen)
	s.mu.Unlock()
}

func (s *Service) recordError(method string) {
	s.counters.Errors.WithLabelValues(method).Inc()

	s.mu.Lock()
	s.errorsByMethod[method]++
	s.mu.Unlock()
}

func (s *Service) recordBytesOut(n int) {
	s.counters.BytesOut.Add(float64(n))

	s.mu.Lock()
	s.bytesOut += uint64(n)
	s.mu.Unlock()
}
