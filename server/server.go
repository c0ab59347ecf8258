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

// Package server is the listener-facing façade: it binds a QUIC
// endpoint, accepts connections and streams, and hands each stream's
// first decoded message.Record to a dispatch.Registry.
package server

import (
	"context"
	"io"
	"net"
	"sync/atomic"

	"github.com/chronista-club/unison-go/dispatch"
	"github.com/chronista-club/unison-go/duplex"
	"github.com/chronista-club/unison-go/internal/pubsub"
	"github.com/chronista-club/unison-go/internal/rescue"
	"github.com/chronista-club/unison-go/logger"
	"github.com/chronista-club/unison-go/message"
	"github.com/chronista-club/unison-go/packet"
	"github.com/chronista-club/unison-go/transport"
)

// Lifecycle events published on Server.Subscribe's queue. Admin
// tooling can watch connection/stream activity without polling the
// Prometheus gauges transport and dispatch already expose.
const (
	EventConnectionAccepted = "connection_accepted"
	EventConnectionClosed   = "connection_closed"
	EventStreamDispatched   = "stream_dispatched"
)

// Config describes where a Server listens and how it presents its
// certificate.
type Config struct {
	Addr string

	// CertProvider resolves the server's TLS certificate. Nil falls
	// back to transport.SelfSignedCertProvider, matching the
	// file→embedded→self-signed order transport.DefaultProviders
	// assembles when the embedding application wants that chain
	// instead.
	CertProvider transport.CertProvider

	Codec packet.CodecConfig
}

// Server accepts QUIC connections and dispatches their streams
// through a dispatch.Registry. Handlers must be registered before
// Listen; there is no unregister path, matching dispatch.Registry's
// own contract.
type Server struct {
	cfg      Config
	registry *dispatch.Registry
	listener *transport.ServerConn
	events   *pubsub.PubSub

	nextStreamID atomic.Uint64
}

// New builds a Server. Register/RegisterStream/RegisterSystemStream
// before calling Listen.
func New(cfg Config) *Server {
	if cfg.Codec == (packet.CodecConfig{}) {
		cfg.Codec = packet.DefaultCodecConfig()
	}
	return &Server{
		cfg:      cfg,
		registry: dispatch.NewRegistry(cfg.Codec),
		events:   pubsub.New(),
	}
}

// Subscribe returns a queue of this server's lifecycle events
// (EventConnectionAccepted, EventConnectionClosed,
// EventStreamDispatched). Callers must Unsubscribe (or drain until
// Close) when done with the queue.
func (s *Server) Subscribe(size int) pubsub.Queue {
	return s.events.Subscribe(size)
}

// Register adds a unary handler for method.
func (s *Server) Register(method string, h dispatch.UnaryHandler) error {
	return s.registry.Register(method, h)
}

// RegisterStream adds a server-push stream handler for method.
func (s *Server) RegisterStream(method string, h dispatch.StreamHandler) error {
	return s.registry.RegisterStream(method, h)
}

// RegisterSystemStream adds a bidirectional stream handler for
// method.
func (s *Server) RegisterSystemStream(method string, h dispatch.StreamHandler) error {
	return s.registry.RegisterSystemStream(method, h)
}

// Listen binds the QUIC endpoint and runs the accept loop until ctx
// is cancelled or the listener is closed. A QUIC application-closed
// condition on the listener is reported as a clean return (nil); any
// other listener error is returned to the caller.
func (s *Server) Listen(ctx context.Context) error {
	certProvider := s.cfg.CertProvider
	if certProvider == nil {
		certProvider = transport.SelfSignedCertProvider{}
	}

	listener, err := transport.Listen(ctx, s.cfg.Addr, certProvider)
	if err != nil {
		return err
	}
	s.listener = listener

	logger.Infof("server listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.serveConnection(ctx, conn)
	}
}

// Addr returns the bound local address. Valid only after Listen has
// started (or in a concurrent goroutine once it has bound).
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener, causing Listen's accept loop to return.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConnection(ctx context.Context, conn *transport.IncomingConn) {
	defer rescue.HandleCrash()
	defer conn.Close()
	defer s.events.Publish(EventConnectionClosed)
	s.events.Publish(EventConnectionAccepted)

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		streamID := s.nextStreamID.Add(1)
		go s.serveStream(ctx, stream, streamID)
	}
}

// serveStream reads the one framed message.Record that opens a
// stream and hands it to the registry for dispatch. A read or decode
// failure abandons this stream without affecting the connection or
// its sibling streams.
func (s *Server) serveStream(ctx context.Context, stream duplex.RawStream, streamID uint64) {
	defer rescue.HandleCrash()
	defer transport.StreamClosed()

	rec, err := readInitialRecord(stream, s.cfg.Codec)
	if err != nil {
		logger.Debugf("abandoning stream %d: %v", streamID, err)
		stream.Close()
		return
	}

	s.events.Publish(EventStreamDispatched + ":" + rec.Method)
	if err := s.registry.Process(ctx, rec, stream, streamID); err != nil {
		logger.Debugf("stream %d dispatch ended: %v", streamID, err)
	}
}

func readInitialRecord(r io.Reader, cfg packet.CodecConfig) (message.Record, error) {
	hdrBuf := make([]byte, packet.HeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		return message.Record{}, err
	}

	hdr, err := packet.ParseHeader(hdrBuf)
	if err != nil {
		return message.Record{}, err
	}

	body := make([]byte, hdr.OnWireLength())
	if _, err := io.ReadFull(r, body); err != nil {
		return message.Record{}, err
	}

	wire := append(hdrBuf, body...)
	_, payload, err := packet.Decode(wire, cfg)
	if err != nil {
		return message.Record{}, err
	}

	return message.Decode(payload)
}
