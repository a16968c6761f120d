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

package xmlsig

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
)

const minimalResponse = `<samlp:Response xmlns:samlp="urn:oasis:names:tc:SAML:2.0:protocol"/>`

type memoryKeyStore struct {
	privateKey *rsa.PrivateKey
	cert       []byte
}

func (ks *memoryKeyStore) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	if ks.privateKey == nil {
		return nil, nil, errors.New("no key")
	}
	return ks.privateKey, ks.cert, nil
}

func newTestKeyPair(t *testing.T, name string) (*memoryKeyStore, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	sn, _ := rand.Int(rand.Reader, big.NewInt(1<<32))
	now := time.Now()
	templ := &x509.Certificate{
		SerialNumber:          sn,
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             now,
		NotAfter:              now.Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, templ, templ, key.Public(), key)
	if err != nil {
		t.Fatalf("x509.CreateCertificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("x509.ParseCertificate: %v", err)
	}
	return &memoryKeyStore{privateKey: key, cert: der}, cert
}

func parseDoc(t *testing.T, s string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		t.Fatalf("ReadFromString: %v", err)
	}
	return doc
}

func signTestDoc(t *testing.T, digest Digest) (string, *x509.Certificate) {
	t.Helper()
	ks, cert := newTestKeyPair(t, "sign.example.com")
	signed, err := NewSigner(ks, digest).Sign(parseDoc(t, minimalResponse))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return signed, cert
}

func TestSignAndVerify(t *testing.T) {
	for _, digest := range []Digest{SHA256, SHA1} {
		signed, cert := signTestDoc(t, digest)

		doc := parseDoc(t, signed)
		if LocateSignature(doc) == nil {
			t.Fatal("LocateSignature: no signature in signed document")
		}
		ok, err := NewVerifier(cert, true).Verify(doc)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if !ok {
			t.Error("Verify with the signing certificate = false, want true")
		}

		_, otherCert := newTestKeyPair(t, "other.example.com")
		ok, err = NewVerifier(otherCert, true).Verify(parseDoc(t, signed))
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if ok {
			t.Error("Verify with an unrelated certificate = true, want false")
		}
	}
}

func TestVerifyTamperedDigest(t *testing.T) {
	signed, cert := signTestDoc(t, SHA256)

	doc := parseDoc(t, signed)
	sig := LocateSignature(doc)
	if sig == nil {
		t.Fatal("LocateSignature: no signature")
	}
	dv := sig.FindElement("./SignedInfo/Reference/DigestValue")
	if dv == nil {
		t.Fatal("no DigestValue element")
	}
	text := dv.Text()
	flipped := "A" + text[1:]
	if text[0] == 'A' {
		flipped = "B" + text[1:]
	}
	dv.SetText(flipped)

	ok, err := NewVerifier(cert, true).Verify(doc)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("Verify with a tampered digest = true, want false")
	}
}

func TestVerifyUnsigned(t *testing.T) {
	_, cert := newTestKeyPair(t, "verify.example.com")
	for _, tc := range []struct {
		requireSignature bool
		want             bool
	}{
		{requireSignature: false, want: true},
		{requireSignature: true, want: false},
	} {
		ok, err := NewVerifier(cert, tc.requireSignature).Verify(parseDoc(t, minimalResponse))
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if ok != tc.want {
			t.Errorf("Verify(unsigned) with requireSignature=%v = %v, want %v", tc.requireSignature, ok, tc.want)
		}
	}
}

func TestVerifyMalformedSignature(t *testing.T) {
	signed, cert := signTestDoc(t, SHA256)

	doc := parseDoc(t, signed)
	sig := LocateSignature(doc)
	sv := sig.FindElement("./SignatureValue")
	if sv == nil {
		t.Fatal("no SignatureValue element")
	}
	sig.RemoveChild(sv)

	if _, err := NewVerifier(cert, true).Verify(doc); !errors.Is(err, ErrMalformedSignature) {
		t.Errorf("Verify(broken structure) = %v, want ErrMalformedSignature", err)
	}
}

func TestSignWithoutKey(t *testing.T) {
	signer := NewSigner(&memoryKeyStore{}, SHA256)
	if _, err := signer.Sign(parseDoc(t, minimalResponse)); !errors.Is(err, ErrSigning) {
		t.Errorf("Sign without key = %v, want ErrSigning", err)
	}
}

func TestSignDoesNotMutateInput(t *testing.T) {
	ks, _ := newTestKeyPair(t, "sign.example.com")
	doc := parseDoc(t, minimalResponse)
	if _, err := NewSigner(ks, SHA256).Sign(doc); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if LocateSignature(doc) != nil {
		t.Error("Sign attached a signature to the input document")
	}
	if doc.Root().SelectAttrValue("ID", "") != "" {
		t.Error("Sign added an ID attribute to the input document")
	}
}

func TestCanonicalize(t *testing.T) {
	doc := parseDoc(t, `<a z="1" b="2"><c/></a>`)
	got, err := Canonicalize(doc.Root())
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `<a b="2" z="1"><c></c></a>`
	if got != want {
		t.Errorf("Canonicalize() = %q, want %q", got, want)
	}
	if strings.Contains(got, "<?xml") {
		t.Error("canonical form contains an XML declaration")
	}
}
