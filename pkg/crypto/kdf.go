package crypto

import (
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/crypto/argon2"
)

const minSaltLength = 16

// Argon2Parameters controls the cost factors for Argon2id key derivation.
type Argon2Parameters struct {
	// Time is the number of iterations.
	Time uint32
	// Memory is the amount of memory (in kibibytes) to use.
	Memory uint32
	// Threads is the degree of parallelism.
	Threads uint8
	// KeyLength is the desired length of the derived key in bytes.
	KeyLength uint32
}

// DefaultArgon2Params returns the parameters used to turn the configured passphrase into a payload key.
func DefaultArgon2Params() Argon2Parameters {
	return Argon2Parameters{
		Time:      2,
		Memory:    64 * 1024, // 64 MiB
		Threads:   4,
		KeyLength: 32,
	}
}

// Validate reports every unsuitable parameter at once.
func (p Argon2Parameters) Validate() error {
	var err error
	if p.Time == 0 {
		err = multierr.Append(err, fmt.Errorf("argon2: time cost must be greater than zero"))
	}
	if p.Threads == 0 {
		err = multierr.Append(err, fmt.Errorf("argon2: parallelism must be greater than zero"))
	} else if p.Memory < 8*uint32(p.Threads) {
		err = multierr.Append(err, fmt.Errorf("argon2: memory cost must be at least 8 * threads"))
	}
	switch p.KeyLength {
	case 16, 24, 32:
	default:
		err = multierr.Append(err, fmt.Errorf("argon2: key length must be 16, 24, or 32 bytes (got %d)", p.KeyLength))
	}
	return err
}

// DeriveKeyArgon2id derives a key using the Argon2id KDF.
func DeriveKeyArgon2id(secret, salt []byte, params Argon2Parameters) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("argon2: secret is required")
	}
	if len(salt) < minSaltLength {
		return nil, fmt.Errorf("argon2: salt must be at least %d bytes (got %d)", minSaltLength, len(salt))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey(secret, salt, params.Time, params.Memory, params.Threads, params.KeyLength), nil
}
