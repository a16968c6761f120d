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

// Package saml wires the codec, signature, and relay-state primitives into
// the message flow of a SAML 2.0 SSO exchange. Outbound: sign the document,
// encode it for the HTTP-Redirect binding, and issue an authenticated relay
// state. Inbound: decode, verify the signature against the counterparty's
// trust material, and check the relay state's HMAC, freshness, and single
// use.
//
// http://docs.oasis-open.org/security/saml/v2.0/saml-core-2.0-os.pdf
package saml

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/beevik/etree"

	"github.com/c2FmZQ/samlsig/redirect"
	"github.com/c2FmZQ/samlsig/relaystate"
	"github.com/c2FmZQ/samlsig/trust"
	"github.com/c2FmZQ/samlsig/xmlsig"
)

// StatusSuccess is the only status code value treated as success. Any other
// value is a non-success status.
const StatusSuccess = "urn:oasis:names:tc:SAML:2.0:status:Success"

var (
	// ErrInvalidSignature indicates an inbound document whose signature
	// did not verify, or that was unsigned while the provider requires
	// signatures.
	ErrInvalidSignature = errors.New("signature verification failed")
	// ErrRelayState indicates an inbound relay state whose digest is
	// wrong, that is stale, or that was already consumed.
	ErrRelayState = errors.New("invalid or expired relay state")
)

// Config configures a Provider.
type Config struct {
	// TrustedCert is the counterparty's certificate: base64-encoded DER,
	// whitespace tolerated.
	TrustedCert string
	// RequireSignature rejects inbound documents that carry no
	// signature. Leaving it unset accepts unsigned documents, which
	// matches historical deployments and must be a deliberate choice.
	RequireSignature bool
	// Digest selects the signing algorithm. The zero value is SHA-256.
	Digest xmlsig.Digest
	// FreshnessWindow bounds the lifetime of a relay state. Defaults to
	// 5 minutes.
	FreshnessWindow time.Duration
}

// Provider holds everything needed for one relying-party relationship. Safe
// for concurrent use.
type Provider struct {
	keys     xmlsig.KeyStore
	signer   *xmlsig.Signer
	verifier *xmlsig.Verifier
	secret   relaystate.SecretKey
	states   *relaystate.Store
}

// Message is an outbound message ready for transport.
type Message struct {
	// Transport carries the signed document, deflated, base64, and
	// percent-encoded.
	Transport string
	// RelayState is the opaque correlation token.
	RelayState string
	// RelayDigest authenticates RelayState.
	RelayDigest string
}

// New returns a Provider using the key pair from keys for signing.
func New(cfg Config, keys xmlsig.KeyStore) (*Provider, error) {
	cert, err := trust.ParseCertificate(cfg.TrustedCert)
	if err != nil {
		return nil, err
	}
	secret, err := relaystate.NewSecretKey()
	if err != nil {
		return nil, err
	}
	window := cfg.FreshnessWindow
	if window == 0 {
		window = 5 * time.Minute
	}
	return &Provider{
		keys:     keys,
		signer:   xmlsig.NewSigner(keys, cfg.Digest),
		verifier: xmlsig.NewVerifier(cert, cfg.RequireSignature),
		secret:   secret,
		states:   relaystate.NewStore(window),
	}, nil
}

// Outbound signs doc and returns it encoded for transport together with an
// authenticated relay state. An empty relayState gets a random value. The
// relay state is recorded for single-use inbound matching.
func (p *Provider) Outbound(doc *etree.Document, relayState string) (*Message, error) {
	if relayState == "" {
		var b [12]byte
		if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
			return nil, err
		}
		relayState = hex.EncodeToString(b[:])
	}
	signed, err := p.signer.Sign(doc)
	if err != nil {
		return nil, err
	}
	transport, err := redirect.Encode([]byte(signed))
	if err != nil {
		return nil, err
	}
	p.states.Put(relayState, time.Now())
	return &Message{
		Transport:   transport,
		RelayState:  relayState,
		RelayDigest: relaystate.Sign(p.secret, relayState),
	}, nil
}

// Inbound decodes transport, verifies its signature against the trusted
// certificate, and checks the relay state. It returns the parsed document
// on success.
func (p *Provider) Inbound(transport, relayState, relayDigest string) (*etree.Document, error) {
	b, err := redirect.Decode(transport)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, err
	}
	ok, err := p.verifier.Verify(doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidSignature
	}
	if !relaystate.Verify(p.secret, relayState, relayDigest) {
		return nil, ErrRelayState
	}
	if !p.states.Consume(relayState, time.Now()) {
		return nil, ErrRelayState
	}
	return doc, nil
}

// IsSuccess reports whether the document's status code is exactly
// StatusSuccess.
func IsSuccess(doc *etree.Document) bool {
	root := doc.Root()
	if root == nil {
		return false
	}
	sc := root.FindElement("./Status/StatusCode")
	if sc == nil {
		return false
	}
	return sc.SelectAttrValue("Value", "") == StatusSuccess
}
