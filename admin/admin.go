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

// Package admin is a plain HTTP side-channel next to the QUIC
// endpoint: Prometheus scraping, a liveness probe, optional pprof,
// and a runtime log-level switch. It never touches the RPC wire
// format; it's ops surface, not protocol.
package admin

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chronista-club/unison-go/logger"
)

// Config describes the admin HTTP server. A zero-value Config with
// Enabled false means New returns a nil *Server: the admin surface is
// opt-in.
type Config struct {
	Enabled bool
	Address string
	Pprof   bool
	Timeout time.Duration
}

// Server is a small gorilla/mux-routed HTTP server exposing /healthz,
// /metrics and, optionally, Go's net/http/pprof handlers.
type Server struct {
	cfg    Config
	router *mux.Router
	srv    *http.Server
}

// New builds a Server, or returns nil if cfg.Enabled is false.
func New(cfg Config) *Server {
	if !cfg.Enabled {
		return nil
	}
	router := mux.NewRouter()
	s := &Server{
		cfg:    cfg,
		router: router,
		srv: &http.Server{
			Handler:      router,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
	}
	s.registerGetRoute("/healthz", s.routeHealthz)
	s.registerGetRoute("/metrics", s.routeMetrics)
	s.registerPostRoute("/-/logger", s.routeLogger)
	if cfg.Pprof {
		s.registerPprofRoutes()
	}
	return s
}

func (s *Server) registerGetRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodGet).Path(path).HandlerFunc(f)
}

func (s *Server) registerPostRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodPost).Path(path).HandlerFunc(f)
}

func (s *Server) registerPprofRoutes() {
	s.registerGetRoute("/debug/pprof/cmdline", pprof.Cmdline)
	s.registerGetRoute("/debug/pprof/profile", pprof.Profile)
	s.registerGetRoute("/debug/pprof/symbol", pprof.Symbol)
	s.registerGetRoute("/debug/pprof/trace", pprof.Trace)
	s.registerGetRoute("/debug/pprof/{other}", pprof.Index)
}

func (s *Server) routeHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) routeMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	w.Write([]byte(`{"status": "success"}`))
}

// ListenAndServe binds cfg.Address and serves until the listener is
// closed. It returns nil on a clean shutdown (http.ErrServerClosed),
// matching net/http's own "this isn't a failure" convention.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	logger.Infof("admin server listening on %s", l.Addr())
	if err := s.srv.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the admin server down, letting in-flight requests
// finish within cfg.Timeout.
func (s *Server) Close() error {
	ctx := context.Background()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.srv.Shutdown(ctx)
}
