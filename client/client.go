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

// Package client is the caller-facing façade over the core: connect
// to a server, issue unary calls, open server streams or full duplex
// streams, and disconnect cleanly.
//
// Each Call/OpenStream/OpenBidirectional opens its own QUIC
// bidirectional stream rather than multiplexing onto one connection
// stream, so the per-request reader goroutine it spawns is tracked in
// readers as one entry per in-flight call rather than a single shared
// response-correlation map.
package client

import (
	"context"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/chronista-club/unison-go/duplex"
	"github.com/chronista-club/unison-go/internal/rescue"
	"github.com/chronista-club/unison-go/message"
	"github.com/chronista-club/unison-go/packet"
	"github.com/chronista-club/unison-go/transport"
	"github.com/chronista-club/unison-go/unisonerr"
)

// streamChanBuffer sizes the channel OpenStream delivers StreamData
// records on, so a slow consumer doesn't stall the reader goroutine
// for a few frames.
const streamChanBuffer = 16

// Options configures a Client's connection.
type Options struct {
	Dial transport.DialOptions
	Codec packet.CodecConfig
}

// DefaultOptions is the codec/TLS configuration new clients use unless
// overridden.
func DefaultOptions() Options {
	return Options{Codec: packet.DefaultCodecConfig()}
}

// Client is a connected session to one unison server. A Client is
// safe for concurrent use: Call/OpenStream/OpenBidirectional may be
// invoked concurrently from multiple goroutines, each on its own QUIC
// stream.
type Client struct {
	// connMu guards conn/connected; connect/disconnect take it
	// exclusively, matching spec's "connection reference held behind
	// a reader-writer lock" — mutation excludes concurrent sends.
	connMu    sync.RWMutex
	conn      *transport.ClientConn
	connected bool

	cfg Options

	nextMessageID atomic.Uint64

	// readers tracks every in-flight response reader so Disconnect
	// can abort them all.
	readersMu sync.Mutex
	readers   map[int]context.CancelFunc
	readerSeq int
}

// Connect dials addr and returns a ready Client.
func Connect(ctx context.Context, addr string, opts Options) (*Client, error) {
	if opts.Codec == (packet.CodecConfig{}) {
		opts.Codec = packet.DefaultCodecConfig()
	}
	conn, err := transport.Dial(ctx, addr, opts.Dial)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:      conn,
		connected: true,
		cfg:       opts,
		readers:   make(map[int]context.CancelFunc),
	}, nil
}

// IsConnected reports whether Disconnect has not yet been called.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

func (c *Client) activeConn() (*transport.ClientConn, error) {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	if !c.connected {
		return nil, unisonerr.New(unisonerr.NotConnected, "client is not connected")
	}
	return c.conn, nil
}

func (c *Client) trackReader(cancel context.CancelFunc) int {
	c.readersMu.Lock()
	defer c.readersMu.Unlock()
	id := c.readerSeq
	c.readerSeq++
	c.readers[id] = cancel
	return id
}

func (c *Client) untrackReader(id int) {
	c.readersMu.Lock()
	defer c.readersMu.Unlock()
	delete(c.readers, id)
}

// openCallStream opens a fresh QUIC stream and wraps it as a duplex
// handle bound to method.
func (c *Client) openCallStream(ctx context.Context, method string) (*duplex.Handle, error) {
	conn, err := c.activeConn()
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	return duplex.New(stream, 0, method, c.cfg.Codec), nil
}

// Call sends a unary Request carrying payload and blocks for the
// matching Response or Error.
func (c *Client) Call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	handle, err := c.openCallStream(ctx, method)
	if err != nil {
		return nil, err
	}
	defer handle.Close()
	defer transport.StreamClosed()

	id := c.nextMessageID.Add(1)
	req, err := message.NewRequest(id, method, payload)
	if err != nil {
		return nil, unisonerr.Wrap(unisonerr.Serialization, err, "encode request payload")
	}
	if err := handle.Send(req); err != nil {
		return nil, err
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	readerID := c.trackReader(cancel)
	defer c.untrackReader(readerID)

	type outcome struct {
		rec message.Record
		err error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		defer rescue.HandleCrash()
		rec, err := handle.Receive()
		resultCh <- outcome{rec, err}
	}()

	select {
	case <-readCtx.Done():
		return nil, readCtx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		if res.rec.Type == message.TypeError {
			var body struct {
				Message string `json:"message"`
			}
			if err := res.rec.Unmarshal(&body); err != nil || body.Message == "" {
				body.Message = "Unknown error"
			}
			return nil, unisonerr.New(unisonerr.Protocol, body.Message)
		}
		return res.rec.Payload, nil
	}
}

// OpenStream sends a server-stream Request and returns a channel of
// StreamData records, closed once the server emits StreamEnd, a
// StreamError, or the stream otherwise ends. The returned channel's
// reader goroutine is tracked the same way Call's is.
func (c *Client) OpenStream(ctx context.Context, method string, payload any) (<-chan message.Record, error) {
	handle, err := c.openCallStream(ctx, method)
	if err != nil {
		return nil, err
	}

	id := c.nextMessageID.Add(1)
	req, err := message.NewRequest(id, method, payload)
	if err != nil {
		handle.Close()
		return nil, unisonerr.Wrap(unisonerr.Serialization, err, "encode stream request payload")
	}
	req.Type = message.TypeStream
	if err := handle.Send(req); err != nil {
		handle.Close()
		return nil, err
	}

	out := make(chan message.Record, streamChanBuffer)
	readCtx, cancel := context.WithCancel(ctx)
	readerID := c.trackReader(cancel)

	go func() {
		defer rescue.HandleCrash()
		defer close(out)
		defer c.untrackReader(readerID)
		defer handle.Close()
		defer transport.StreamClosed()

		for {
			rec, err := handle.Receive()
			if err != nil && rec.Type != message.TypeStreamEnd && rec.Type != message.TypeStreamError {
				return
			}
			select {
			case out <- rec:
			case <-readCtx.Done():
				return
			}
			if rec.Type == message.TypeStreamEnd || rec.Type == message.TypeStreamError {
				return
			}
		}
	}()

	return out, nil
}

// OpenBidirectional sends a BidirectionalStream Request and returns
// the live duplex handle for the caller to Send/Receive on directly.
// The caller owns the handle's lifecycle; Disconnect still force-
// closes it if still open.
func (c *Client) OpenBidirectional(ctx context.Context, method string) (*duplex.Handle, error) {
	handle, err := c.openCallStream(ctx, method)
	if err != nil {
		return nil, err
	}

	id := c.nextMessageID.Add(1)
	req, err := message.NewRequest(id, method, nil)
	if err != nil {
		handle.Close()
		return nil, unisonerr.Wrap(unisonerr.Serialization, err, "encode bidirectional request payload")
	}
	req.Type = message.TypeBidirectionalStream
	if err := handle.Send(req); err != nil {
		handle.Close()
		return nil, err
	}

	c.trackHandle(handle)
	return handle, nil
}

// trackHandle lets Disconnect close a long-lived bidirectional handle
// the caller may not have closed yet, using the same cancel-tracking
// slot as reader goroutines (closing a handle is idempotent).
func (c *Client) trackHandle(h *duplex.Handle) {
	c.trackReader(func() { _ = h.Close() })
}

// Disconnect aborts every outstanding response reader and open
// bidirectional handle, then closes the connection. After Disconnect,
// IsConnected reports false and every subsequent Call fails with
// NotConnected.
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false

	c.readersMu.Lock()
	for _, cancel := range c.readers {
		cancel()
	}
	c.readers = make(map[int]context.CancelFunc)
	c.readersMu.Unlock()

	return c.conn.Close()
}
