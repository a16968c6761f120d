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
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// Digest selects the digest and signature algorithm pair.
type Digest int

const (
	// SHA256 is the default.
	SHA256 Digest = iota
	// SHA1 is weak and retained only for interoperability with legacy
	// identity providers.
	SHA1
)

func (d Digest) signatureMethod() (string, error) {
	switch d {
	case SHA256:
		return dsig.RSASHA256SignatureMethod, nil
	case SHA1:
		return dsig.RSASHA1SignatureMethod, nil
	default:
		return "", fmt.Errorf("unknown digest %d", d)
	}
}

// Signer signs SAML documents with an enveloped XML signature. It is
// stateless apart from the key store and safe for concurrent use, but a
// document instance must not be signed concurrently.
type Signer struct {
	keys   KeyStore
	digest Digest
}

// NewSigner returns a Signer that signs with the key pair from keys.
func NewSigner(keys KeyStore, digest Digest) *Signer {
	return &Signer{keys: keys, digest: digest}
}

// Sign computes an enveloped signature over the exclusive canonical form of
// the document, appends the signature element (with the certificate in its
// KeyInfo) as the last child of the root, and returns the serialized signed
// document. The input document is not modified. If the root has no ID
// attribute, a random one is assigned before signing.
func (s *Signer) Sign(doc *etree.Document) (string, error) {
	if _, _, err := s.keys.GetKeyPair(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	root := doc.Root()
	if root == nil {
		return "", errors.New("document has no root element")
	}
	root = root.Copy()
	if root.SelectAttrValue("ID", "") == "" {
		id, err := randomID()
		if err != nil {
			return "", err
		}
		root.CreateAttr("ID", id)
	}

	ctx := dsig.NewDefaultSigningContext(s.keys)
	ctx.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")
	method, err := s.digest.signatureMethod()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if err := ctx.SetSignatureMethod(method); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}

	signed, err := ctx.SignEnveloped(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	out := etree.NewDocument()
	out.SetRoot(signed)
	return out.WriteToString()
}

func randomID() (string, error) {
	var b [16]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return "", err
	}
	return "id-" + hex.EncodeToString(b[:]), nil
}
