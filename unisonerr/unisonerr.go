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

// Package unisonerr defines the error taxonomy shared across every
// layer of unison: a flat Kind tag plus a wrapped cause, so callers
// can switch on error kind instead of matching sentinels one by one.
package unisonerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind enumerates the error categories of the external API.
type Kind string

const (
	Connection         Kind = "connection"
	Protocol           Kind = "protocol"
	Serialization      Kind = "serialization"
	FrameSerialization Kind = "frame_serialization"
	Quic               Kind = "quic"
	Timeout            Kind = "timeout"
	HandlerNotFound    Kind = "handler_not_found"
	NotConnected       Kind = "not_connected"
	UnsupportedTransport Kind = "unsupported_transport"
)

// Error is a Kind-tagged error wrapping an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds an Error of the given kind with a message and no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind wrapping cause, recording a
// stack trace via pkg/errors.WithStack.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: pkgerrors.WithStack(cause)}
}

// Is reports whether err is a *Error of the given kind, unwrapping as
// needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
