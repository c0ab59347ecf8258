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
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/chronista-club/unison-go/unisonerr"
)

// DefaultPort is assumed when an address omits a port.
const DefaultPort = 4433

// DefaultListenAddr is the core's default listen address: IPv6
// loopback, OS-assigned port.
const DefaultListenAddr = "[::1]:0"

// ParseAddr normalizes addr into the "[ipv6]:port" form quic-go's
// DialAddr/ListenAddr accept. IPv4 literals are rejected; this is a
// deliberate policy, not an oversight — see the design notes.
//
// Accepted forms: "[ipv6]:port", a bare IPv6 literal ("::1"),
// "localhost" with or without a port, a bare port ("4433"), or the
// empty string (DefaultListenAddr).
func ParseAddr(addr string) (string, error) {
	if addr == "" {
		return DefaultListenAddr, nil
	}

	if port, err := strconv.Atoi(addr); err == nil {
		return fmt.Sprintf("[::1]:%d", port), nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host = strings.Trim(addr, "[]")
		portStr = strconv.Itoa(DefaultPort)
	}
	if portStr == "" {
		portStr = strconv.Itoa(DefaultPort)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", unisonerr.New(unisonerr.Protocol, "invalid port in address: "+addr)
	}

	if strings.EqualFold(host, "localhost") || host == "" {
		return fmt.Sprintf("[::1]:%d", port), nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", unisonerr.New(unisonerr.Protocol, "invalid host in address: "+addr)
	}
	if ip.To4() != nil {
		return "", unisonerr.New(unisonerr.UnsupportedTransport, "IPv4 addresses are not supported: "+addr)
	}

	return fmt.Sprintf("[%s]:%d", ip.String(), port), nil
}
