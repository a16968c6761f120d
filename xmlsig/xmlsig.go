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

// Package xmlsig creates and verifies enveloped XML digital signatures over
// SAML documents, using exclusive canonicalization (comments omitted).
//
// The verifier is always bound to a single trusted certificate supplied out
// of band. Key material embedded in the document under validation is never
// used to select the verification key. This is a hard invariant, not a
// default: deriving the key from the document would allow signature
// wrapping attacks.
//
// https://www.w3.org/TR/xmldsig-core/
package xmlsig

import (
	"crypto/rsa"
	"errors"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

const (
	// Namespace is the XML-DSig namespace.
	Namespace = "http://www.w3.org/2000/09/xmldsig#"
	// SignatureTag is the local name of the signature element.
	SignatureTag = "Signature"
)

var (
	// ErrSigning indicates missing or unusable key material.
	ErrSigning = errors.New("unusable signing key material")
	// ErrMalformedSignature indicates a structurally broken signature
	// block, as opposed to a well-formed signature that fails
	// cryptographic verification.
	ErrMalformedSignature = errors.New("malformed signature")
)

// KeyStore supplies the private key and certificate pair used for signing.
// The Signer borrows the pair for the duration of one call and does not
// retain it. The keystore package provides implementations.
type KeyStore interface {
	GetKeyPair() (*rsa.PrivateKey, []byte, error)
}

// LocateSignature returns the first Signature element in the XML-DSig
// namespace under the document root, or nil if the document is unsigned.
func LocateSignature(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	return findSignature(root)
}

func findSignature(el *etree.Element) *etree.Element {
	if el.Tag == SignatureTag && el.NamespaceURI() == Namespace {
		return el
	}
	for _, child := range el.ChildElements() {
		if sig := findSignature(child); sig != nil {
			return sig
		}
	}
	return nil
}

// Canonicalize returns the exclusive C14N (comments omitted) serialization
// of el, suitable for digesting or diffing outside the signing path.
func Canonicalize(el *etree.Element) (string, error) {
	b, err := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("").Canonicalize(el)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
