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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"embed"
	"math/big"
	"os"
	"time"

	"github.com/pkg/errors"
)

// CertProvider resolves a TLS certificate chain and private key for
// the server side of the transport. Implementations never have their
// output cached by the core beyond endpoint construction.
type CertProvider interface {
	Certificate() (tls.Certificate, error)
}

// FileCertProvider loads a chain/key pair from the filesystem.
type FileCertProvider struct {
	CertPath string
	KeyPath  string
}

func (p FileCertProvider) Certificate() (tls.Certificate, error) {
	if _, err := os.Stat(p.CertPath); err != nil {
		return tls.Certificate{}, errors.Wrap(err, "cert file not found")
	}
	if _, err := os.Stat(p.KeyPath); err != nil {
		return tls.Certificate{}, errors.Wrap(err, "key file not found")
	}
	cert, err := tls.LoadX509KeyPair(p.CertPath, p.KeyPath)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "load x509 key pair")
	}
	return cert, nil
}

// EmbeddedCertProvider serves a chain/key pair baked into the binary
// via an embed.FS, for environments without filesystem access to
// real certificate material (e.g. a container image with no config
// volume mounted).
type EmbeddedCertProvider struct {
	FS       embed.FS
	CertPath string
	KeyPath  string
}

func (p EmbeddedCertProvider) Certificate() (tls.Certificate, error) {
	certPEM, err := p.FS.ReadFile(p.CertPath)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "read embedded cert")
	}
	keyPEM, err := p.FS.ReadFile(p.KeyPath)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "read embedded key")
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "parse embedded key pair")
	}
	return cert, nil
}

// SelfSignedCertProvider generates a throwaway ECDSA certificate with
// SANs for localhost and the given extra DNS names, each time
// Certificate is called. It never touches disk.
type SelfSignedCertProvider struct {
	ExtraDNSNames []string
}

func (p SelfSignedCertProvider) Certificate() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "generate key")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "generate serial number")
	}

	dnsNames := append([]string{"localhost"}, p.ExtraDNSNames...)
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"unison self-signed"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              dnsNames,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "create self-signed certificate")
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, nil
}

// ResolveCertificate tries each provider in order and returns the
// first one that succeeds, per §6.4's file → embedded → self-signed
// fallback chain.
func ResolveCertificate(providers ...CertProvider) (tls.Certificate, error) {
	var lastErr error
	for _, p := range providers {
		cert, err := p.Certificate()
		if err == nil {
			return cert, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no certificate providers configured")
	}
	return tls.Certificate{}, errors.Wrap(lastErr, "all certificate providers failed")
}

// DefaultProviders returns the standard file → embedded → self-signed
// fallback chain rooted at the given config paths. certFS may be the
// zero value if no embedded bundle is compiled in; EmbeddedCertProvider
// will simply fail and fall through to the self-signed generator.
func DefaultProviders(certPath, keyPath string, certFS embed.FS, embeddedCertPath, embeddedKeyPath string) []CertProvider {
	return []CertProvider{
		FileCertProvider{CertPath: certPath, KeyPath: keyPath},
		EmbeddedCertProvider{FS: certFS, CertPath: embeddedCertPath, KeyPath: embeddedKeyPath},
		SelfSignedCertProvider{},
	}
}
