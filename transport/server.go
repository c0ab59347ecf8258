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
	"context"
	"crypto/tls"
	"net"

	"github.com/quic-go/quic-go"

	"github.com/chronista-club/unison-go/unisonerr"
)

// ServerConn is a bound QUIC listener accepting connections.
type ServerConn struct {
	listener *quic.Listener
}

// Listen parses addr with ParseAddr, resolves a certificate from
// certProvider, and binds a QUIC listener.
func Listen(ctx context.Context, addr string, certProvider CertProvider) (*ServerConn, error) {
	normalized, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}

	cert, err := certProvider.Certificate()
	if err != nil {
		return nil, unisonerr.Wrap(unisonerr.Connection, err, "resolve server certificate")
	}

	tlsConf := &tls.Config{
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
	}

	listener, err := quic.ListenAddr(normalized, tlsConf, QUICConfig())
	if err != nil {
		return nil, unisonerr.Wrap(unisonerr.Quic, err, "listen on "+normalized)
	}
	return &ServerConn{listener: listener}, nil
}

// Addr returns the bound local address.
func (s *ServerConn) Addr() net.Addr {
	return s.listener.Addr()
}

// IncomingConn is an accepted inbound QUIC connection, not yet
// carrying any stream.
type IncomingConn struct {
	conn *quic.Conn
}

// Accept waits for the next inbound connection.
func (s *ServerConn) Accept(ctx context.Context) (*IncomingConn, error) {
	conn, err := s.listener.Accept(ctx)
	if err != nil {
		return nil, unisonerr.Wrap(unisonerr.Quic, err, "accept connection")
	}
	activeConnections.Inc()
	return &IncomingConn{conn: conn}, nil
}

// AcceptStream waits for the next inbound bidirectional stream on
// this connection.
func (c *IncomingConn) AcceptStream(ctx context.Context) (*quic.Stream, error) {
	s, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return nil, unisonerr.Wrap(unisonerr.Quic, err, "accept stream")
	}
	activeStreams.Inc()
	return s, nil
}

// Close closes the underlying connection.
func (c *IncomingConn) Close() error {
	activeConnections.Dec()
	return c.conn.CloseWithError(0, "")
}

// Close stops accepting new connections.
func (s *ServerConn) Close() error {
	return s.listener.Close()
}
