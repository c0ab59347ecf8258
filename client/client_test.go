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

package client

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronista-club/unison-go/dispatch"
	"github.com/chronista-club/unison-go/duplex"
	"github.com/chronista-club/unison-go/message"
	"github.com/chronista-club/unison-go/packet"
	"github.com/chronista-club/unison-go/transport"
	"github.com/chronista-club/unison-go/unisonerr"
)

// readInitialRecord reads the first framed message.Record a freshly
// accepted stream carries, the way a server's accept loop would
// before handing it to dispatch.Registry.Process.
func readInitialRecord(t *testing.T, r io.Reader, cfg packet.CodecConfig) message.Record {
	t.Helper()
	hdrBuf := make([]byte, packet.HeaderSize)
	_, err := io.ReadFull(r, hdrBuf)
	require.NoError(t, err)

	hdr, err := packet.ParseHeader(hdrBuf)
	require.NoError(t, err)

	body := make([]byte, hdr.OnWireLength())
	_, err = io.ReadFull(r, body)
	require.NoError(t, err)

	wire := append(hdrBuf, body...)
	_, payload, err := packet.Decode(wire, cfg)
	require.NoError(t, err)

	rec, err := message.Decode(payload)
	require.NoError(t, err)
	return rec
}

// startTestServer spins a one-connection QUIC server that dispatches
// every accepted stream through reg, and returns its listen address.
func startTestServer(t *testing.T, reg *dispatch.Registry, cfg packet.CodecConfig) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := transport.Listen(ctx, "[::1]:0", transport.SelfSignedCertProvider{})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	go func() {
		conn, err := srv.Accept(ctx)
		if err != nil {
			return
		}
		for {
			stream, err := conn.AcceptStream(ctx)
			if err != nil {
				return
			}
			go func() {
				rec := readInitialRecord(t, stream, cfg)
				_ = reg.Process(ctx, rec, stream, 1)
			}()
		}
	}()

	return srv.Addr().String()
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Dial.InsecureSkipVerify = true
	return opts
}

func TestCallPingPong(t *testing.T) {
	reg := dispatch.NewRegistry(packet.DefaultCodecConfig())
	require.NoError(t, reg.Register("ping", func(ctx context.Context, payload []byte) (any, error) {
		var req struct {
			Message  string `json:"message"`
			Sequence int    `json:"sequence"`
		}
		require.NoError(t, message.Record{Payload: payload}.Unmarshal(&req))
		return map[string]any{
			"message":     "Pong: " + req.Message,
			"sequence":    req.Sequence,
			"server_info": "test-server",
		}, nil
	}))
	addr := startTestServer(t, reg, packet.DefaultCodecConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Connect(ctx, addr, testOptions())
	require.NoError(t, err)
	defer c.Disconnect()

	resp, err := c.Call(ctx, "ping", map[string]any{"message": "Hello", "sequence": 3})
	require.NoError(t, err)

	var got struct {
		Message  string `json:"message"`
		Sequence int    `json:"sequence"`
	}
	require.NoError(t, (message.Record{Payload: resp}).Unmarshal(&got))
	assert.Equal(t, "Pong: Hello", got.Message)
	assert.Equal(t, 3, got.Sequence)
}

func TestCallMethodNotFound(t *testing.T) {
	reg := dispatch.NewRegistry(packet.DefaultCodecConfig())
	addr := startTestServer(t, reg, packet.DefaultCodecConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Connect(ctx, addr, testOptions())
	require.NoError(t, err)
	defer c.Disconnect()

	_, err = c.Call(ctx, "no_such_method", map[string]any{})
	require.Error(t, err)
	assert.True(t, unisonerr.Is(err, unisonerr.Protocol))
	assert.Contains(t, err.Error(), "Method not found: no_such_method")
}

func TestOpenStreamDeliversDataThenCloses(t *testing.T) {
	reg := dispatch.NewRegistry(packet.DefaultCodecConfig())
	require.NoError(t, reg.RegisterStream("count", func(ctx context.Context, initial []byte, h *duplex.Handle) error {
		for i := 0; i < 3; i++ {
			if err := h.Send(message.Record{ID: 1, Type: message.TypeStreamData, Payload: []byte(`{"n":` + string(rune('0'+i)) + `}`)}); err != nil {
				return err
			}
		}
		return nil
	}))
	addr := startTestServer(t, reg, packet.DefaultCodecConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Connect(ctx, addr, testOptions())
	require.NoError(t, err)
	defer c.Disconnect()

	ch, err := c.OpenStream(ctx, "count", nil)
	require.NoError(t, err)

	var gotData int
	var sawEnd bool
	for rec := range ch {
		if rec.Type == message.TypeStreamData {
			gotData++
		}
		if rec.Type == message.TypeStreamEnd {
			sawEnd = true
		}
	}
	assert.Equal(t, 3, gotData)
	assert.True(t, sawEnd)
}

func TestOpenBidirectionalChatEcho(t *testing.T) {
	reg := dispatch.NewRegistry(packet.DefaultCodecConfig())
	require.NoError(t, reg.RegisterSystemStream("chat", func(ctx context.Context, initial []byte, h *duplex.Handle) error {
		for i := 0; i < 3; i++ {
			rec, err := h.Receive()
			if err != nil {
				return nil
			}
			rec.Type = message.TypeStreamReceive
			if err := h.Send(rec); err != nil {
				return err
			}
		}
		return nil
	}))
	addr := startTestServer(t, reg, packet.DefaultCodecConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Connect(ctx, addr, testOptions())
	require.NoError(t, err)
	defer c.Disconnect()

	handle, err := c.OpenBidirectional(ctx, "chat")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		rec := message.Record{ID: uint64(i), Type: message.TypeStreamSend, Payload: []byte(`{"n":` + string(rune('0'+i)) + `}`)}
		require.NoError(t, handle.Send(rec))
	}

	for i := 0; i < 3; i++ {
		rec, err := handle.Receive()
		require.NoError(t, err)
		assert.Equal(t, message.TypeStreamReceive, rec.Type)
	}

	require.NoError(t, handle.Close())
	assert.False(t, handle.IsActive())
}
