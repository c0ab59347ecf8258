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
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDialListenRoundTrip exercises the full QUIC stack end-to-end
// over real loopback UDP: a server accepts one connection and one
// stream, echoes what it reads, and the client reads the echo back.
func TestDialListenRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, err := Listen(ctx, "[::1]:0", SelfSignedCertProvider{})
	require.NoError(t, err)
	defer srv.Close()

	serverDone := make(chan error, 1)
	go func() {
		conn, err := srv.Accept(ctx)
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			serverDone <- err
			return
		}

		buf := make([]byte, 5)
		if _, err := io.ReadFull(stream, buf); err != nil {
			serverDone <- err
			return
		}
		if _, err := stream.Write(buf); err != nil {
			serverDone <- err
			return
		}
		serverDone <- stream.Close()
	}()

	client, err := Dial(ctx, srv.Addr().String(), DialOptions{InsecureSkipVerify: true})
	require.NoError(t, err)
	defer client.Close()

	stream, err := client.OpenStream(ctx)
	require.NoError(t, err)

	_, err = stream.Write([]byte("hello"))
	require.NoError(t, err)

	echo := make([]byte, 5)
	_, err = io.ReadFull(stream, echo)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(echo))

	require.NoError(t, <-serverDone)
}
