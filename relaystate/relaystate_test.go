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

package relaystate

import (
	"regexp"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	key, err := NewSecretKey()
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}
	if got, want := len(key), SecretKeySize; got != want {
		t.Fatalf("len(key) = %d, want %d", got, want)
	}

	digest := Sign(key, "some opaque state")
	if !regexp.MustCompile(`^[0-9a-f]{40}$`).MatchString(digest) {
		t.Errorf("Sign() = %q, want 40 lowercase hex characters", digest)
	}
	if digest != Sign(key, "some opaque state") {
		t.Error("Sign is not deterministic for a fixed key")
	}
	if digest == Sign(key, "some other state") {
		t.Error("different values produced the same digest")
	}

	otherKey, err := NewSecretKey()
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}
	if digest == Sign(otherKey, "some opaque state") {
		t.Error("different keys produced the same digest")
	}
}

func TestVerify(t *testing.T) {
	key, err := NewSecretKey()
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}
	digest := Sign(key, "value")
	if !Verify(key, "value", digest) {
		t.Error("Verify(valid digest) = false")
	}
	if Verify(key, "other value", digest) {
		t.Error("Verify(wrong value) = true")
	}
	corrupt := digest[:39] + "0"
	if digest[39] == '0' {
		corrupt = digest[:39] + "1"
	}
	if Verify(key, "value", corrupt) {
		t.Error("Verify(corrupted digest) = true")
	}
	if Verify(key, "value", "not hex at all") {
		t.Error("Verify(non-hex digest) = true")
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Now()
	window := 5 * time.Minute
	for _, tc := range []struct {
		age  time.Duration
		want bool
	}{
		{age: 0, want: true},
		{age: time.Second, want: true},
		{age: window - time.Nanosecond, want: true},
		{age: window, want: false},
		{age: window + time.Second, want: false},
		{age: -time.Minute, want: true},
	} {
		if got := IsFresh(now.Add(-tc.age), window, now); got != tc.want {
			t.Errorf("IsFresh(now-%v) = %v, want %v", tc.age, got, tc.want)
		}
	}
}

func TestStoreConsume(t *testing.T) {
	now := time.Now()
	s := NewStore(5 * time.Minute)
	s.Put("abc", now)

	if s.Consume("missing", now) {
		t.Error("Consume(missing) = true")
	}
	if !s.Consume("abc", now.Add(time.Minute)) {
		t.Error("Consume(fresh) = false")
	}
	if s.Consume("abc", now.Add(time.Minute)) {
		t.Error("Consume twice = true, want single use")
	}
}

func TestStorePrunes(t *testing.T) {
	now := time.Now()
	s := NewStore(5 * time.Minute)
	s.Put("old", now)
	s.Put("older", now.Add(-time.Hour))
	s.Put("current", now.Add(4*time.Minute))

	if s.Consume("old", now.Add(5*time.Minute)) {
		t.Error("Consume(entry exactly window old) = true, want false")
	}
	if got, want := s.Len(), 1; got != want {
		t.Errorf("Len() = %d, want %d (stale entries pruned)", got, want)
	}
	if !s.Consume("current", now.Add(5*time.Minute)) {
		t.Error("Consume(fresh entry) = false")
	}
}
