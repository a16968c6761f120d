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
	"crypto/x509"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// Verifier validates enveloped signatures against a single trusted
// certificate. It is safe for concurrent use.
type Verifier struct {
	ctx              *dsig.ValidationContext
	requireSignature bool
}

// NewVerifier returns a Verifier bound to cert. With requireSignature set,
// unsigned documents are rejected; otherwise they verify vacuously, which
// matches the historical SAML HTTP-Redirect behavior and must be a
// deliberate policy decision by the integrator.
func NewVerifier(cert *x509.Certificate, requireSignature bool) *Verifier {
	return &Verifier{
		ctx: dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
			Roots: []*x509.Certificate{cert},
		}),
		requireSignature: requireSignature,
	}
}

// Verify reports whether the document's signature is valid under the
// trusted certificate. A cryptographically invalid signature is a normal
// (false, nil) outcome; only a structurally broken signature block returns
// ErrMalformedSignature. An unsigned document returns the configured
// policy result.
func (v *Verifier) Verify(doc *etree.Document) (bool, error) {
	sig := LocateSignature(doc)
	if sig == nil {
		return !v.requireSignature, nil
	}
	if err := checkSignatureShape(sig); err != nil {
		return false, err
	}
	if _, err := v.ctx.Validate(doc.Root()); err != nil {
		return false, nil
	}
	return true, nil
}

// checkSignatureShape separates structural breakage from cryptographic
// failure before the signature is unmarshaled.
func checkSignatureShape(sig *etree.Element) error {
	signedInfo := childInNamespace(sig, "SignedInfo")
	if signedInfo == nil {
		return fmt.Errorf("%w: missing SignedInfo", ErrMalformedSignature)
	}
	if childInNamespace(sig, "SignatureValue") == nil {
		return fmt.Errorf("%w: missing SignatureValue", ErrMalformedSignature)
	}
	ref := childInNamespace(signedInfo, "Reference")
	if ref == nil {
		return fmt.Errorf("%w: missing Reference", ErrMalformedSignature)
	}
	if childInNamespace(ref, "DigestValue") == nil {
		return fmt.Errorf("%w: missing DigestValue", ErrMalformedSignature)
	}
	return nil
}

func childInNamespace(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag && child.NamespaceURI() == Namespace {
			return child
		}
	}
	return nil
}
