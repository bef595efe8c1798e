// Package vault protects connection payloads at rest.
package vault

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/queryhub/pkg/crypto"
)

const (
	defaultSaltLength = 16

	// PayloadContext binds ciphertext to the connection data column so a
	// sealed value cannot be replayed into another field.
	PayloadContext = "connection.data"
)

var errNotInitialised = errors.New("vault crypto: key is not initialised")

// Crypto seals and opens connection payloads with an Argon2id-derived AES-256-GCM key.
type Crypto struct {
	key            []byte
	salt           []byte
	params         crypto.Argon2Parameters
	additionalData []byte
}

type cryptoConfig struct {
	params         crypto.Argon2Parameters
	salt           []byte
	additionalData []byte
}

// Option configures the vault crypto helper.
type Option func(*cryptoConfig)

// WithSalt overrides the salt used for Argon2 key derivation.
func WithSalt(salt []byte) Option {
	cp := append([]byte(nil), salt...)
	return func(cfg *cryptoConfig) {
		cfg.salt = cp
	}
}

// WithArgon2Parameters overrides the Argon2 parameters used during key derivation.
func WithArgon2Parameters(params crypto.Argon2Parameters) Option {
	return func(cfg *cryptoConfig) {
		cfg.params = params
	}
}

// WithContext replaces the authenticated context bound to every ciphertext.
func WithContext(context string) Option {
	return func(cfg *cryptoConfig) {
		cfg.additionalData = []byte(context)
	}
}

// NewCrypto derives the payload key from passphrase.
func NewCrypto(passphrase string, opts ...Option) (*Crypto, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, errors.New("vault crypto: passphrase is required")
	}

	cfg := cryptoConfig{
		params:         crypto.DefaultArgon2Params(),
		additionalData: []byte(PayloadContext),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	master := []byte(passphrase)
	if len(cfg.salt) == 0 {
		cfg.salt = deriveSalt(master)
	} else if len(cfg.salt) < defaultSaltLength {
		return nil, fmt.Errorf("vault crypto: salt must be at least %d bytes (got %d)", defaultSaltLength, len(cfg.salt))
	}

	derived, err := crypto.DeriveKeyArgon2id(master, cfg.salt, cfg.params)
	if err != nil {
		return nil, fmt.Errorf("vault crypto: derive key: %w", err)
	}

	return &Crypto{
		key:            derived,
		salt:           cfg.salt,
		params:         cfg.params,
		additionalData: cfg.additionalData,
	}, nil
}

// Encrypt seals a serialized payload.
func (c *Crypto) Encrypt(plaintext []byte) (string, error) {
	if c == nil || len(c.key) == 0 {
		return "", errNotInitialised
	}
	sealed, err := crypto.Seal(plaintext, c.key, c.additionalData)
	if err != nil {
		return "", fmt.Errorf("vault crypto: seal: %w", err)
	}
	return sealed, nil
}

// Decrypt opens a payload produced by Encrypt.
func (c *Crypto) Decrypt(ciphertext string) ([]byte, error) {
	if c == nil || len(c.key) == 0 {
		return nil, errNotInitialised
	}
	plaintext, err := crypto.Open(strings.TrimSpace(ciphertext), c.key, c.additionalData)
	if err != nil {
		return nil, fmt.Errorf("vault crypto: open: %w", err)
	}
	return plaintext, nil
}

// Salt returns a copy of the salt used during derivation.
func (c *Crypto) Salt() []byte {
	return append([]byte(nil), c.salt...)
}

// Parameters returns the Argon2 parameters used during derivation.
func (c *Crypto) Parameters() crypto.Argon2Parameters {
	return c.params
}

func deriveSalt(master []byte) []byte {
	sum := sha256.Sum256(master)
	return sum[:defaultSaltLength]
}
