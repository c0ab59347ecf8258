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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronista-club/unison-go/unisonerr"
)

func TestParseAddrAcceptedForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", DefaultListenAddr},
		{"4433", "[::1]:4433"},
		{"localhost:4433", "[::1]:4433"},
		{"localhost", "[::1]:4433"},
		{"::1", "[::1]:4433"},
		{"[::1]:9000", "[::1]:9000"},
		{"2001:db8::1", "[2001:db8::1]:4433"},
	}
	for _, tc := range cases {
		got, err := ParseAddr(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseAddrRejectsIPv4(t *testing.T) {
	cases := []string{"127.0.0.1", "127.0.0.1:4433", "0.0.0.0:1234"}
	for _, in := range cases {
		_, err := ParseAddr(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, unisonerr.Is(err, unisonerr.UnsupportedTransport), "input %q", in)
	}
}
