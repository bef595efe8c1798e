package app

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const minPassphraseBytes = 16

// PassphraseByteLength returns the decoded byte length of a passphrase.
// Hex is tried first since generated passphrases are hex, then base64, then raw text.
func PassphraseByteLength(value string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return len(decoded)
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
		return len(decoded)
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(v); err == nil {
		return len(decoded)
	}
	return len(v)
}
