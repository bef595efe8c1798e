package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PayloadCipher encrypts and decrypts serialized connection payloads.
type PayloadCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// PayloadEncoding describes how persisted payloads are stored.
type PayloadEncoding string

const (
	// EncodingPlain stores payloads as JSON text.
	EncodingPlain PayloadEncoding = "plain"
	// EncodingEncrypted stores payloads as sealed ciphertext.
	EncodingEncrypted PayloadEncoding = "encrypted"
)

// ParsePayloadEncoding maps a configuration value onto a PayloadEncoding. Empty means plain.
func ParsePayloadEncoding(value string) (PayloadEncoding, error) {
	switch PayloadEncoding(strings.ToLower(strings.TrimSpace(value))) {
	case "", EncodingPlain:
		return EncodingPlain, nil
	case EncodingEncrypted:
		return EncodingEncrypted, nil
	default:
		return "", fmt.Errorf("unsupported payload encoding %q", value)
	}
}

// Payload failure reasons, also used as metric labels.
const (
	ReasonDecrypt = "decrypt"
	ReasonParse   = "parse"
	ReasonEncode  = "encode"
)

// PayloadError describes why a payload could not be converted.
type PayloadError struct {
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("connection payload %s: %v", e.Reason, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// PayloadReason extracts the failure reason from err, defaulting to parse.
func PayloadReason(err error) string {
	var payloadErr *PayloadError
	if errors.As(err, &payloadErr) {
		return payloadErr.Reason
	}
	return ReasonParse
}

// DecodedPayload is the result of a successful decode.
type DecodedPayload struct {
	Fields map[string]any
	// LegacyPlain is set when an encrypted codec accepted an unencrypted JSON payload.
	LegacyPlain bool
}

// PayloadCodec converts between structured payloads and their stored form.
type PayloadCodec interface {
	Encoding() PayloadEncoding
	Encode(fields map[string]any) (string, error)
	Decode(stored string) (DecodedPayload, error)
}

// NewPayloadCodec builds the codec for encoding. Encrypted mode requires a cipher.
func NewPayloadCodec(encoding PayloadEncoding, cipher PayloadCipher) (PayloadCodec, error) {
	switch encoding {
	case "", EncodingPlain:
		return PlainCodec{}, nil
	case EncodingEncrypted:
		if cipher == nil {
			return nil, errors.New("payload codec: encrypted encoding requires a cipher")
		}
		return &EncryptedCodec{cipher: cipher}, nil
	default:
		return nil, fmt.Errorf("payload codec: unsupported encoding %q", encoding)
	}
}

// PlainCodec stores payloads as JSON objects.
type PlainCodec struct{}

// Encoding implements PayloadCodec.
func (PlainCodec) Encoding() PayloadEncoding { return EncodingPlain }

// Encode implements PayloadCodec.
func (PlainCodec) Encode(fields map[string]any) (string, error) {
	return encodeFields(fields)
}

// Decode implements PayloadCodec.
func (PlainCodec) Decode(stored string) (DecodedPayload, error) {
	fields, err := decodeObject(stored)
	if err != nil {
		return DecodedPayload{}, &PayloadError{Reason: ReasonParse, Err: err}
	}
	return DecodedPayload{Fields: fields}, nil
}

// EncryptedCodec seals the JSON form of a payload with a PayloadCipher.
type EncryptedCodec struct {
	cipher PayloadCipher
}

// Encoding implements PayloadCodec.
func (c *EncryptedCodec) Encoding() PayloadEncoding { return EncodingEncrypted }

// Encode implements PayloadCodec.
func (c *EncryptedCodec) Encode(fields map[string]any) (string, error) {
	plaintext, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	sealed, err := c.cipher.Encrypt([]byte(plaintext))
	if err != nil {
		return "", &PayloadError{Reason: ReasonEncode, Err: err}
	}
	return sealed, nil
}

// Decode implements PayloadCodec. The cipher is invoked exactly once; rows written
// before encryption was enabled are accepted when they hold a plain JSON object.
func (c *EncryptedCodec) Decode(stored string) (DecodedPayload, error) {
	plaintext, err := c.cipher.Decrypt(stored)
	if err != nil {
		if fields, legacyErr := decodeObject(stored); legacyErr == nil {
			return DecodedPayload{Fields: fields, LegacyPlain: true}, nil
		}
		return DecodedPayload{}, &PayloadError{Reason: ReasonDecrypt, Err: err}
	}

	fields, err := decodeObject(string(plaintext))
	if err != nil {
		return DecodedPayload{}, &PayloadError{Reason: ReasonParse, Err: err}
	}
	return DecodedPayload{Fields: fields}, nil
}

func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", &PayloadError{Reason: ReasonEncode, Err: err}
	}
	return string(encoded), nil
}

func decodeObject(value string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return fields, nil
}
