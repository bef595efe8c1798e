package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charlesng35/queryhub/internal/services"
)

const payloadPassphraseBytes = 32

// ApplyRuntimeDefaults fills secrets the configuration left empty.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	encoding, err := cfg.Vault.Encoding()
	if err != nil {
		return nil, err
	}

	if encoding == services.EncodingEncrypted && strings.TrimSpace(cfg.Vault.Passphrase) == "" {
		secret, err := generateHexKey(payloadPassphraseBytes)
		if err != nil {
			return nil, fmt.Errorf("generate payload passphrase: %w", err)
		}
		cfg.Vault.Passphrase = secret
		generated["vault.passphrase"] = true
	}

	return generated, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
