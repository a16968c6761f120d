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

// samlsig is a command-line tool for the transport and integrity primitives
// of SAML 2.0 Single-Sign-On exchanges: encoding and decoding messages for
// the HTTP-Redirect binding, and creating and verifying XML digital
// signatures over SAML documents.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/beevik/etree"
	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	yaml "gopkg.in/yaml.v3"

	"github.com/c2FmZQ/samlsig/keystore"
	"github.com/c2FmZQ/samlsig/redirect"
	"github.com/c2FmZQ/samlsig/trust"
	"github.com/c2FmZQ/samlsig/xmlsig"
)

// Version is set with -ldflags="-X main.Version=${VERSION}"
var Version = "dev"

// Config is the samlsig tool configuration.
type Config struct {
	// KeyStoreFile is a PKCS#12 file with the signing key and
	// certificate. When empty, a key is generated and persisted in
	// StateDir.
	KeyStoreFile string `yaml:"keyStoreFile,omitempty"`
	// KeyStorePassword is the password of KeyStoreFile.
	KeyStorePassword string `yaml:"keyStorePassword,omitempty"`
	// StateDir is where generated key material is persisted, encrypted
	// with Passphrase.
	StateDir string `yaml:"stateDir,omitempty"`
	// Passphrase encrypts the persisted key material.
	Passphrase string `yaml:"passphrase,omitempty"`
	// Name is the common name of the generated signing certificate.
	Name string `yaml:"name,omitempty"`
	// TrustedCert is the counterparty's certificate used to verify
	// inbound documents: base64-encoded DER, whitespace tolerated.
	TrustedCert string `yaml:"trustedCert,omitempty"`
	// RequireSignature rejects inbound documents without a signature.
	// Unsigned documents are accepted when unset; set it unless legacy
	// peers send unsigned messages.
	RequireSignature bool `yaml:"requireSignature"`
	// LegacySHA1 selects SHA-1 digests for interoperability with legacy
	// identity providers. The default is SHA-256.
	LegacySHA1 bool `yaml:"legacySHA1,omitempty"`
}

// ReadConfig reads and validates the YAML configuration.
func ReadConfig(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %v", file, err)
	}
	if cfg.KeyStoreFile == "" && cfg.StateDir == "" {
		return nil, errors.New("one of keyStoreFile or stateDir must be set")
	}
	if cfg.Name == "" {
		cfg.Name = "samlsig"
	}
	return &cfg, nil
}

func main() {
	configFile := flag.String("config", "", "The config file name.")
	encodeFlag := flag.String("encode", "", "Encode the XML document in `file` for the HTTP-Redirect binding.")
	decodeFlag := flag.String("decode", "", "Decode a transport `string` back to XML.")
	signFlag := flag.String("sign", "", "Sign the XML document in `file` and print the signed document.")
	verifyFlag := flag.String("verify", "", "Verify the signature of the XML document in `file`.")
	versionFlag := flag.Bool("v", false, "Show the version.")
	flag.Parse()

	if *versionFlag {
		os.Stdout.WriteString(Version + " " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + "\n")
		return
	}

	switch {
	case *encodeFlag != "":
		b, err := os.ReadFile(*encodeFlag)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		out, err := redirect.Encode(b)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		fmt.Println(out)

	case *decodeFlag != "":
		b, err := redirect.Decode(*decodeFlag)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		os.Stdout.Write(b)

	case *signFlag != "":
		cfg := mustReadConfig(*configFile)
		doc := mustReadDoc(*signFlag)
		signer := xmlsig.NewSigner(newKeyStore(cfg), digest(cfg))
		signed, err := signer.Sign(doc)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		fmt.Println(signed)

	case *verifyFlag != "":
		cfg := mustReadConfig(*configFile)
		if cfg.TrustedCert == "" {
			log.Fatal("ERR trustedCert must be set in the config file")
		}
		cert, err := trust.ParseCertificate(cfg.TrustedCert)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		doc := mustReadDoc(*verifyFlag)
		ok, err := xmlsig.NewVerifier(cert, cfg.RequireSignature).Verify(doc)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		if !ok {
			log.Fatal("ERR signature is INVALID")
		}
		log.Print("INF signature is valid")

	default:
		log.Fatal("one of --encode, --decode, --sign, or --verify must be set")
	}
}

func mustReadConfig(file string) *Config {
	if file == "" {
		log.Fatal("--config must be set")
	}
	cfg, err := ReadConfig(file)
	if err != nil {
		log.Fatalf("ERR %v", err)
	}
	return cfg
}

func mustReadDoc(file string) *etree.Document {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(file); err != nil {
		log.Fatalf("ERR %v", err)
	}
	return doc
}

func digest(cfg *Config) xmlsig.Digest {
	if cfg.LegacySHA1 {
		log.Print("WRN Using legacy SHA-1 digests")
		return xmlsig.SHA1
	}
	return xmlsig.SHA256
}

func newKeyStore(cfg *Config) xmlsig.KeyStore {
	if cfg.KeyStoreFile != "" {
		b, err := os.ReadFile(cfg.KeyStoreFile)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		ks, err := keystore.FromPKCS12(b, cfg.KeyStorePassword)
		if err != nil {
			log.Fatalf("ERR %v", err)
		}
		return ks
	}
	if cfg.Passphrase == "" {
		log.Fatal("ERR passphrase must be set when stateDir is used")
	}
	mkFile := filepath.Join(cfg.StateDir, "masterkey")
	mk, err := crypto.ReadMasterKey([]byte(cfg.Passphrase), mkFile, crypto.WithAlgo(crypto.PickFastest))
	if errors.Is(err, os.ErrNotExist) {
		if mk, err = crypto.CreateMasterKey(crypto.WithAlgo(crypto.PickFastest)); err != nil {
			log.Fatal("ERR failed to create master key")
		}
		err = mk.Save([]byte(cfg.Passphrase), mkFile)
	}
	if err != nil {
		log.Fatalf("ERR %s: %v", mkFile, err)
	}
	ks, err := keystore.NewPersistent(storage.New(cfg.StateDir, mk), cfg.Name)
	if err != nil {
		log.Fatalf("ERR %v", err)
	}
	return ks
}
