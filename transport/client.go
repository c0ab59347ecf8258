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

	"github.com/quic-go/quic-go"

	"github.com/chronista-club/unison-go/unisonerr"
)

// DialOptions configures Dial beyond the core's fixed tuning.
type DialOptions struct {
	// InsecureSkipVerify skips server certificate verification; only
	// meant for development.
	InsecureSkipVerify bool
	// VerifyConnection, if set, runs after the standard chain
	// validation; crypto/tls also calls it when InsecureSkipVerify is
	// true, with that validation skipped.
	VerifyConnection func(tls.ConnectionState) error
}

// ClientConn is an established QUIC connection to a unison server.
type ClientConn struct {
	conn *quic.Conn
}

// Dial parses addr with ParseAddr and opens a QUIC connection to it.
func Dial(ctx context.Context, addr string, opts DialOptions) (*ClientConn, error) {
	normalized, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}

	tlsConf := &tls.Config{
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}
	if opts.VerifyConnection != nil {
		verify := opts.VerifyConnection
		tlsConf.VerifyConnection = func(cs tls.ConnectionState) error {
			return verify(cs)
		}
	}

	conn, err := quic.DialAddr(ctx, normalized, tlsConf, QUICConfig())
	if err != nil {
		return nil, unisonerr.Wrap(unisonerr.Quic, err, "dial "+normalized)
	}
	activeConnections.Inc()
	return &ClientConn{conn: conn}, nil
}

// OpenStream opens a new bidirectional QUIC stream.
func (c *ClientConn) OpenStream(ctx context.Context) (*quic.Stream, error) {
	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, unisonerr.Wrap(unisonerr.Quic, err, "open stream")
	}
	activeStreams.Inc()
	return s, nil
}

// Close closes the underlying QUIC connection.
func (c *ClientConn) Close() error {
	activeConnections.Dec()
	return c.conn.CloseWithError(0, "")
}
