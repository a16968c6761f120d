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

// Package keystore supplies the private key and certificate pair used to
// sign SAML documents. Key material can come from a PKCS#12 keystore file,
// from an encrypted on-disk store that generates its own key, or directly
// from memory. The key type is resolved once at load time; only RSA keys
// are usable for signing.
package keystore

import (
	"crypto/rsa"
	"errors"
	"fmt"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// ErrNoKey indicates that the store cannot supply a usable private key and
// certificate pair.
var ErrNoKey = errors.New("no usable key material")

// Memory holds a key pair in memory.
type Memory struct {
	Key  *rsa.PrivateKey
	Cert []byte // DER
}

// GetKeyPair implements the key store contract consumed by xmlsig.Signer.
func (m *Memory) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	if m.Key == nil || len(m.Cert) == 0 {
		return nil, nil, ErrNoKey
	}
	return m.Key, m.Cert, nil
}

// FromPKCS12 loads key material from a PKCS#12 keystore file. Keys of any
// type other than RSA are rejected at load time.
func FromPKCS12(data []byte, password string) (*Memory, error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoKey, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrNoKey, key)
	}
	return &Memory{Key: rsaKey, Cert: cert.Raw}, nil
}
