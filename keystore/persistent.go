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

package keystore

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
)

const signingKeyFile = "signing-keys"

type signingKeys struct {
	Keys []*signingKey
}

type signingKey struct {
	Name         string
	Key          []byte // PKCS#1
	Cert         []byte // DER
	CreationTime time.Time

	privKey *rsa.PrivateKey
}

// Persistent is a key store that generates an RSA key and a self-signed
// certificate on first use, and keeps them encrypted on disk.
type Persistent struct {
	store *storage.Storage

	mu   sync.Mutex
	keys signingKeys
}

// NewPersistent returns a Persistent key store backed by store. The
// certificate's subject common name is name.
func NewPersistent(store *storage.Storage, name string) (*Persistent, error) {
	p := &Persistent{store: store}
	store.CreateEmptyFile(signingKeyFile, &p.keys)
	if err := p.initKeys(name); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persistent) initKeys(name string) (retErr error) {
	var keys signingKeys
	commit, err := p.store.OpenForUpdate(signingKeyFile, &keys)
	if err != nil {
		return err
	}
	defer commit(false, &retErr)
	var changed bool

	if len(keys.Keys) == 0 {
		sk, err := createSigningKey(name)
		if err != nil {
			return err
		}
		keys.Keys = append(keys.Keys, sk)
		changed = true
	}
	for _, k := range keys.Keys {
		privKey, err := x509.ParsePKCS1PrivateKey(k.Key)
		if err != nil {
			return err
		}
		k.privKey = privKey
	}
	p.mu.Lock()
	p.keys = keys
	p.mu.Unlock()
	if !changed {
		return nil
	}
	return commit(true, nil)
}

// GetKeyPair returns the most recent signing key and its certificate.
func (p *Persistent) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys.Keys) == 0 {
		return nil, nil, ErrNoKey
	}
	k := p.keys.Keys[len(p.keys.Keys)-1]
	return k.privKey, k.Cert, nil
}

func createSigningKey(name string) (*signingKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	sn, err := rand.Int(rand.Reader, big.NewInt(1<<32))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	templ := &x509.Certificate{
		SerialNumber:          sn,
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             now,
		NotAfter:              now.Add(5 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, templ, templ, key.Public(), key)
	if err != nil {
		return nil, err
	}
	return &signingKey{
		Name:         name,
		Key:          x509.MarshalPKCS1PrivateKey(key),
		Cert:         der,
		CreationTime: now,
		privKey:      key,
	}, nil
}
