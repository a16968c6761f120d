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

package saml

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// IssueSessionToken mints an RS256 JSON Web Token for subject after a
// verified inbound exchange, signed with the provider's own key pair.
func (p *Provider) IssueSessionToken(issuer, subject string, validity time.Duration) (string, error) {
	key, _, err := p.keys.GetKeyPair()
	if err != nil {
		return "", err
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iat":   now.Unix(),
		"exp":   now.Add(validity).Unix(),
		"iss":   issuer,
		"aud":   issuer,
		"sub":   subject,
		"scope": "sso",
	})
	return tok.SignedString(key)
}

// ValidateSessionToken validates a token minted by IssueSessionToken.
func (p *Provider) ValidateSessionToken(issuer, token string) (*jwt.Token, error) {
	tok, err := jwt.ParseWithClaims(token, jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		key, _, err := p.keys.GetKeyPair()
		if err != nil {
			return nil, err
		}
		return key.Public(), nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuer(issuer), jwt.WithAudience(issuer))
	if err != nil {
		return nil, err
	}
	if c, ok := tok.Claims.(jwt.MapClaims); !ok || c["scope"] != "sso" {
		return nil, errors.New("wrong scope")
	}
	return tok, nil
}
