package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrKeyNotFound indicates the requested kid is unknown to the provider.
var ErrKeyNotFound = errors.New("security: key not found")

// KeyProvider supplies the RSA key pair used to sign and verify tokens.
type KeyProvider interface {
	SigningKey() (kid string, key *rsa.PrivateKey, err error)
	VerificationKey(kid string) (*rsa.PublicKey, error)
}

// FileKeyProvider loads PEM encoded RSA keys from a directory. The file name
// without extension becomes the kid. The first private key found is used for
// signing; every key contributes a verification key.
type FileKeyProvider struct {
	signingKID string
	signingKey *rsa.PrivateKey
	publicKeys map[string]*rsa.PublicKey
}

// NewFileKeyProvider reads every key file in dir.
func NewFileKeyProvider(dir string) (*FileKeyProvider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("security: read key directory: %w", err)
	}

	p := &FileKeyProvider{publicKeys: make(map[string]*rsa.PublicKey)}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("security: read key file %s: %w", path, err)
		}

		kid := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := p.addKey(kid, raw); err != nil {
			return nil, fmt.Errorf("security: load key %s: %w", path, err)
		}
	}

	if p.signingKey == nil {
		return nil, errors.New("security: no private key found in key directory")
	}

	return p, nil
}

func (p *FileKeyProvider) addKey(kid string, raw []byte) error {
	block, _ := pem.Decode(raw)
	if block == nil {
		return errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		p.registerPrivate(kid, key)
		return nil
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return errors.New("private key is not RSA")
		}
		p.registerPrivate(kid, key)
		return nil
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		p.publicKeys[kid] = key
		return nil
	}

	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return errors.New("public key is not RSA")
		}
		p.publicKeys[kid] = key
		return nil
	}

	return errors.New("unrecognized key format")
}

func (p *FileKeyProvider) registerPrivate(kid string, key *rsa.PrivateKey) {
	if p.signingKey == nil {
		p.signingKID = kid
		p.signingKey = key
	}
	p.publicKeys[kid] = &key.PublicKey
}

func (p *FileKeyProvider) SigningKey() (string, *rsa.PrivateKey, error) {
	return p.signingKID, p.signingKey, nil
}

func (p *FileKeyProvider) VerificationKey(kid string) (*rsa.PublicKey, error) {
	key, ok := p.publicKeys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// PublicKeys returns every verification key by kid.
func (p *FileKeyProvider) PublicKeys() map[string]*rsa.PublicKey {
	out := make(map[string]*rsa.PublicKey, len(p.publicKeys))
	for kid, key := range p.publicKeys {
		out[kid] = key
	}
	return out
}

// StaticKeyProvider wraps a single in-memory key pair. Used in tests and in
// deployments that inject the key material directly.
type StaticKeyProvider struct {
	KID string
	Key *rsa.PrivateKey
}

func (p *StaticKeyProvider) SigningKey() (string, *rsa.PrivateKey, error) {
	if p.Key == nil {
		return "", nil, errors.New("security: static provider has no key")
	}
	return p.KID, p.Key, nil
}

func (p *StaticKeyProvider) VerificationKey(kid string) (*rsa.PublicKey, error) {
	if p.Key == nil || kid != p.KID {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return &p.Key.PublicKey, nil
}

// PublicKeys returns the single verification key by kid.
func (p *StaticKeyProvider) PublicKeys() map[string]*rsa.PublicKey {
	if p.Key == nil {
		return nil
	}
	return map[string]*rsa.PublicKey{p.KID: &p.Key.PublicKey}
}
