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

package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestResponseRoundTrip(t *testing.T) {
	req, err := NewRequest(1, "ping", map[string]string{"hello": "world"})
	require.NoError(t, err)
	assert.Equal(t, TypeRequest, req.Type)

	raw, err := Encode(req)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.Method, got.Method)

	var body map[string]string
	require.NoError(t, got.Unmarshal(&body))
	assert.Equal(t, "world", body["hello"])
}

func TestNewErrorCarriesMessage(t *testing.T) {
	rec := NewError(5, "method not found")
	assert.Equal(t, TypeError, rec.Type)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, rec.Unmarshal(&body))
	assert.Equal(t, "method not found", body.Message)
}

func TestNewResponseEchoesID(t *testing.T) {
	resp, err := NewResponse(9, 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), resp.ID)
	assert.Equal(t, TypeResponse, resp.Type)

	var n int
	require.NoError(t, resp.Unmarshal(&n))
	assert.Equal(t, 42, n)
}
