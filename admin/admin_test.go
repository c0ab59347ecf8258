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

package admin

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledReturnsNil(t *testing.T) {
	assert.Nil(t, New(Config{Enabled: false}))
}

func startTestAdmin(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.Enabled = true
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:0"
	}
	s := New(cfg)
	require.NotNil(t, s)

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
		require.NoError(t, <-errCh)
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.Address + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return s
}

func TestRouteHealthz(t *testing.T) {
	startTestAdmin(t, Config{Address: "127.0.0.1:18181"})

	resp, err := http.Get("http://127.0.0.1:18181/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestRouteMetricsServesPrometheusFormat(t *testing.T) {
	startTestAdmin(t, Config{Address: "127.0.0.1:18182"})

	resp, err := http.Get("http://127.0.0.1:18182/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouteLoggerAcceptsLevelChange(t *testing.T) {
	startTestAdmin(t, Config{Address: "127.0.0.1:18183"})

	resp, err := http.Post("http://127.0.0.1:18183/-/logger?level=debug", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
