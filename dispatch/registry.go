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

// Package dispatch routes decoded message.Record values to registered
// handlers and serializes their results back onto the originating
// stream.
package dispatch

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/chronista-club/unison-go/duplex"
	"github.com/chronista-club/unison-go/packet"
	"github.com/chronista-club/unison-go/unisonerr"
)

const shardCount = 8

// UnaryHandler answers a single Request with a value (JSON-marshalable)
// or an error.
type UnaryHandler func(ctx context.Context, payload []byte) (any, error)

// StreamHandler drives a Stream or BidirectionalStream exchange over
// a duplex handle. A plain (server-push) stream handler only calls
// handle.Send; a bidirectional one may also call handle.Receive. The
// handle is closed by Process once the handler returns.
type StreamHandler func(ctx context.Context, initial []byte, handle *duplex.Handle) error

type shard struct {
	mu     sync.RWMutex
	unary  map[string]UnaryHandler
	stream map[string]StreamHandler
}

// Registry maps method names to handlers. Method names are unique
// across unary and stream handlers combined. Entries are expected to
// be registered before Listen; there is no unregister path.
//
// Lookups are sharded eight ways by xxhash.Sum64String(method) so
// concurrent dispatch across many streams doesn't serialize on one
// lock; each Registry instance owns its own shards.
type Registry struct {
	shards [shardCount]*shard
	cfg    packet.CodecConfig
}

// NewRegistry returns an empty Registry that frames stream handles
// using cfg.
func NewRegistry(cfg packet.CodecConfig) *Registry {
	r := &Registry{cfg: cfg}
	for i := range r.shards {
		r.shards[i] = &shard{unary: map[string]UnaryHandler{}, stream: map[string]StreamHandler{}}
	}
	return r
}

func (r *Registry) shardFor(method string) *shard {
	return r.shards[xxhash.Sum64String(method)%shardCount]
}

// alreadyRegistered reports whether method is taken by either handler
// kind in its shard. Callers must hold the shard's write lock.
func (s *shard) alreadyRegistered(method string) bool {
	if _, ok := s.unary[method]; ok {
		return true
	}
	if _, ok := s.stream[method]; ok {
		return true
	}
	return false
}

// Register adds a unary handler for method.
func (r *Registry) Register(method string, h UnaryHandler) error {
	s := r.shardFor(method)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alreadyRegistered(method) {
		return unisonerr.New(unisonerr.Protocol, "method already registered: "+method)
	}
	s.unary[method] = h
	return nil
}

// RegisterStream adds a server-push stream handler for method.
func (r *Registry) RegisterStream(method string, h StreamHandler) error {
	return r.registerStream(method, h)
}

// RegisterSystemStream adds a bidirectional stream handler for
// method. It shares storage with RegisterStream; Process decides how
// to drive the resulting duplex.Handle based on the incoming
// message's Type, not on which registration call was used.
func (r *Registry) RegisterSystemStream(method string, h StreamHandler) error {
	return r.registerStream(method, h)
}

func (r *Registry) registerStream(method string, h StreamHandler) error {
	s := r.shardFor(method)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alreadyRegistered(method) {
		return unisonerr.New(unisonerr.Protocol, "method already registered: "+method)
	}
	s.stream[method] = h
	return nil
}

func (r *Registry) lookupUnary(method string) (UnaryHandler, bool) {
	s := r.shardFor(method)
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.unary[method]
	return h, ok
}

func (r *Registry) lookupStream(method string) (StreamHandler, bool) {
	s := r.shardFor(method)
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.stream[method]
	return h, ok
}
