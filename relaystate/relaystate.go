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

// Package relaystate protects the opaque correlation token carried alongside
// a SAML message against tampering and replay: a keyed HMAC over the token
// value and a freshness window over its timestamp.
//
// The secret key is owned by the caller, typically one per server process or
// per session. It is immutable once generated and safe for concurrent
// read-only use.
package relaystate

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"sync"
	"time"
)

// SecretKeySize is the size of a generated secret key, in bytes.
const SecretKeySize = 20

// SecretKey is random key material for HMAC-SHA1. Never derived from user
// input.
type SecretKey []byte

// NewSecretKey generates a fresh random secret key.
func NewSecretKey() (SecretKey, error) {
	key := make(SecretKey, SecretKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Sign returns the lowercase hex HMAC-SHA1 digest of value, 40 characters.
func Sign(key SecretKey, value string) string {
	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether digest is the HMAC of value under key. The
// comparison is constant time.
func Verify(key SecretKey, value, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(value))
	return hmac.Equal(want, mac.Sum(nil))
}

// IsFresh reports whether t is still inside the replay window, i.e. strictly
// after now-window. A timestamp exactly window old is stale.
func IsFresh(t time.Time, window time.Duration, now time.Time) bool {
	return now.Sub(t) < window
}

// Store tracks outstanding relay-state tokens for single use within a
// freshness window. Storage and pruning only; the HMAC check is separate.
type Store struct {
	window time.Duration

	mu     sync.Mutex
	states map[string]time.Time
}

// NewStore returns an empty Store with the given freshness window.
func NewStore(window time.Duration) *Store {
	return &Store{
		window: window,
		states: make(map[string]time.Time),
	}
}

// Put records value as issued at time now.
func (s *Store) Put(value string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[value] = now
}

// Consume removes value from the store and reports whether it was present
// and still fresh. Stale entries are pruned on the way.
func (s *Store) Consume(value string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for v, t := range s.states {
		if !IsFresh(t, s.window, now) {
			delete(s.states, v)
		}
	}
	if _, ok := s.states[value]; !ok {
		return false
	}
	delete(s.states, value)
	return true
}

// Len returns the number of outstanding tokens.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
