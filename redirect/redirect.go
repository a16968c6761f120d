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

// Package redirect implements the message codec for the SAML 2.0
// HTTP-Redirect binding: raw DEFLATE compression, standard base64, and
// percent-encoding for inclusion in a URL query string, and the exact
// inverse.
//
// The payload handed to Encode must be fixed content. Compressing
// attacker-influenced text together with secrets before signing or
// encryption is a known oracle risk (CRIME-style).
//
// http://docs.oasis-open.org/security/saml/v2.0/saml-bindings-2.0-os.pdf
package redirect

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
)

// maxMessageSize bounds the size of an inflated incoming message.
const maxMessageSize = 10 << 20

// ErrDecode indicates a malformed transport string: bad percent-encoding,
// bad base64, or corrupt compressed data.
var ErrDecode = errors.New("malformed transport message")

// Encode transforms an XML document into a URL-safe transport string:
// deflate (no zlib wrapper), base64, percent-encode.
func Encode(xml []byte) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(xml); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return url.QueryEscape(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// EncodeNoCompress is the base64-only variant of Encode, for payloads that
// must be transported byte for byte, e.g. signed documents posted in a form
// field.
func EncodeNoCompress(xml []byte) string {
	return url.QueryEscape(base64.StdEncoding.EncodeToString(xml))
}

// Decode is the exact inverse of Encode. It returns ErrDecode if the
// transport string is malformed at any layer.
func Decode(s string) ([]byte, error) {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	raw, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	xml, err := io.ReadAll(io.LimitReader(r, maxMessageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return xml, nil
}

// DecodeNoCompress is the inverse of EncodeNoCompress.
func DecodeNoCompress(s string) ([]byte, error) {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	xml, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return xml, nil
}

// FormEncode base64-encodes every value of fields and returns the
// form-encoded mapping, as used when posting SAML responses with an HTML
// auto-submit form.
func FormEncode(fields map[string]string) string {
	v := make(url.Values, len(fields))
	for name, value := range fields {
		v.Set(name, base64.StdEncoding.EncodeToString([]byte(value)))
	}
	return v.Encode()
}
