package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePayloadEncoding(t *testing.T) {
	for input, want := range map[string]PayloadEncoding{
		"":           EncodingPlain,
		"plain":      EncodingPlain,
		" Encrypted": EncodingEncrypted,
	} {
		got, err := ParsePayloadEncoding(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParsePayloadEncoding("rot13")
	require.Error(t, err)
}

func TestNewPayloadCodec(t *testing.T) {
	codec, err := NewPayloadCodec(EncodingPlain, nil)
	require.NoError(t, err)
	require.Equal(t, EncodingPlain, codec.Encoding())

	_, err = NewPayloadCodec(EncodingEncrypted, nil)
	require.Error(t, err)

	codec, err = NewPayloadCodec(EncodingEncrypted, &countingCipher{})
	require.NoError(t, err)
	require.Equal(t, EncodingEncrypted, codec.Encoding())
}

func TestPlainCodec(t *testing.T) {
	codec := PlainCodec{}

	encoded, err := codec.Encode(map[string]any{"host": "h"})
	require.NoError(t, err)
	require.JSONEq(t, `{"host":"h"}`, encoded)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"host": "h"}, decoded.Fields)
	require.False(t, decoded.LegacyPlain)

	for _, bad := range []string{"not-json", "[1,2]", "null", `"string"`} {
		_, err := codec.Decode(bad)
		require.Error(t, err, bad)
		require.Equal(t, ReasonParse, PayloadReason(err))
	}
}

func TestEncryptedCodecRoundTrip(t *testing.T) {
	cipher := &countingCipher{}
	codec, err := NewPayloadCodec(EncodingEncrypted, cipher)
	require.NoError(t, err)

	sealed, err := codec.Encode(map[string]any{"password": "s3cret"})
	require.NoError(t, err)
	require.Equal(t, 1, cipher.encrypts)

	decoded, err := codec.Decode(sealed)
	require.NoError(t, err)
	require.Equal(t, 1, cipher.decrypts)
	require.Equal(t, "s3cret", decoded.Fields["password"])
}

func TestEncryptedCodecAcceptsLegacyPlainJSON(t *testing.T) {
	cipher := &countingCipher{}
	codec, err := NewPayloadCodec(EncodingEncrypted, cipher)
	require.NoError(t, err)

	decoded, err := codec.Decode(`{"host":"legacy"}`)
	require.NoError(t, err)
	require.True(t, decoded.LegacyPlain)
	require.Equal(t, "legacy", decoded.Fields["host"])
	require.Equal(t, 1, cipher.decrypts)
}

func TestEncryptedCodecFailureReasons(t *testing.T) {
	cipher := &countingCipher{}
	codec, err := NewPayloadCodec(EncodingEncrypted, cipher)
	require.NoError(t, err)

	_, err = codec.Decode("garbage")
	require.Error(t, err)
	require.Equal(t, ReasonDecrypt, PayloadReason(err))

	_, err = codec.Decode(fakeSealPrefix + "not-json")
	require.Error(t, err)
	require.Equal(t, ReasonParse, PayloadReason(err))

	require.Equal(t, 2, cipher.decrypts)
}

func TestEncryptedCodecEncodeFailure(t *testing.T) {
	codec, err := NewPayloadCodec(EncodingEncrypted, &countingCipher{fail: true})
	require.NoError(t, err)

	_, err = codec.Encode(map[string]any{"host": "h"})
	require.Error(t, err)
	require.Equal(t, ReasonEncode, PayloadReason(err))
}
