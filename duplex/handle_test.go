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

package duplex

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronista-club/unison-go/message"
	"github.com/chronista-club/unison-go/packet"
	"github.com/chronista-club/unison-go/unisonerr"
)

func newPipeHandles(t *testing.T) (*Handle, *Handle) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	cfg := packet.DefaultCodecConfig()
	cfg.Compression.Enabled = false

	client := New(clientConn, 1, "chat", cfg)
	server := New(serverConn, 1, "chat", cfg)
	return client, server
}

func TestHandleSendReceiveRoundTrip(t *testing.T) {
	client, server := newPipeHandles(t)

	done := make(chan error, 1)
	go func() {
		rec, err := message.NewRequest(1, "chat", map[string]int{"n": 1})
		if err != nil {
			done <- err
			return
		}
		done <- client.Send(rec)
	}()

	got, err := server.Receive()
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Equal(t, message.TypeRequest, got.Type)
	var body map[string]int
	require.NoError(t, got.Unmarshal(&body))
	assert.Equal(t, 1, body["n"])
}

func TestHandleIsActiveBeforeAndAfterClose(t *testing.T) {
	client, _ := newPipeHandles(t)
	assert.True(t, client.IsActive())

	require.NoError(t, client.Close())
	assert.False(t, client.IsActive())
	assert.Equal(t, Closed, client.State())
}

func TestHandleSendAfterCloseFails(t *testing.T) {
	client, _ := newPipeHandles(t)
	require.NoError(t, client.Close())

	rec := message.NewError(1, "unused")
	err := client.Send(rec)
	require.Error(t, err)
	assert.True(t, unisonerr.Is(err, unisonerr.Connection))
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	client, _ := newPipeHandles(t)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestHandleReceiveAfterPeerClosesTransitionsHalfClosedRemote(t *testing.T) {
	client, server := newPipeHandles(t)

	done := make(chan error, 1)
	go func() {
		done <- client.Close()
	}()

	_, err := server.Receive()
	require.Error(t, err)
	require.NoError(t, <-done)

	assert.True(t, unisonerr.Is(err, unisonerr.Connection))
	assert.Equal(t, HalfClosedRemote, server.State())
	assert.False(t, server.IsActive())
}

func TestHandleStreamEndMessageTransitionsClosed(t *testing.T) {
	client, server := newPipeHandles(t)

	done := make(chan error, 1)
	go func() {
		rec := message.Record{ID: 1, Type: message.TypeStreamEnd}
		done <- client.Send(rec)
	}()

	_, err := server.Receive()
	require.NoError(t, <-done)
	require.Error(t, err)
	assert.True(t, unisonerr.Is(err, unisonerr.Connection))
	assert.Equal(t, Closed, server.State())
}
