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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte(`
keyStoreFile: /etc/samlsig/sp.p12
keyStorePassword: hunter2
trustedCert: "MIIB...=="
requireSignature: true
legacySHA1: true
`), 0o600); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	got, err := ReadConfig(file)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	want := &Config{
		KeyStoreFile:     "/etc/samlsig/sp.p12",
		KeyStorePassword: "hunter2",
		Name:             "samlsig",
		TrustedCert:      "MIIB...==",
		RequireSignature: true,
		LegacySHA1:       true,
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("ReadConfig() diff: %v", diff)
	}
}

func TestReadConfigRequiresKeySource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("requireSignature: true\n"), 0o600); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := ReadConfig(file); err == nil {
		t.Error("ReadConfig without key source succeeded")
	}
}
