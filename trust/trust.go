// MIT License
//
// Copyright (c) 2025 TTBT Enterprises LLC
// Copyright (c) 2025 Robin Thellend <rthellend@rthellend.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package trust parses the X.509 trust material of a SAML counterparty. The
// input is a base64-encoded DER certificate, i.e. the body of a PEM block
// without the BEGIN/END delimiters, with whitespace and newlines tolerated.
package trust

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrParseCertificate indicates malformed X.509 input.
var ErrParseCertificate = errors.New("malformed certificate")

// ParseCertificate parses a base64-encoded DER certificate. Whitespace and
// newlines anywhere in the input are stripped before decoding.
func ParseCertificate(s string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(stripSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseCertificate, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseCertificate, err)
	}
	return cert, nil
}

// ParsePEM parses all CERTIFICATE blocks in b.
func ParsePEM(b []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for len(b) > 0 {
		block, rest := pem.Decode(b)
		if block == nil {
			break
		}
		b = rest
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseCertificate, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no CERTIFICATE block", ErrParseCertificate)
	}
	return certs, nil
}

// PublicKey returns the certificate's public key, or nil if cert is nil.
func PublicKey(cert *x509.Certificate) crypto.PublicKey {
	if cert == nil {
		return nil
	}
	return cert.PublicKey
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Cache memoizes ParseCertificate. The certificate string of a relying party
// is static configuration, so parsing it once per process is enough.
type Cache struct {
	cache *lru.TwoQueueCache[string, *x509.Certificate]
}

// NewCache returns a Cache that holds up to size parsed certificates.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New2Q[string, *x509.Certificate](size)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c}, nil
}

// ParseCertificate is like the package-level ParseCertificate with
// memoization. Parse failures are not cached.
func (c *Cache) ParseCertificate(s string) (*x509.Certificate, error) {
	if cert, ok := c.cache.Get(s); ok {
		return cert, nil
	}
	cert, err := ParseCertificate(s)
	if err != nil {
		return nil, err
	}
	c.cache.Add(s, cert)
	return cert, nil
}
