package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paramexchange/core/internal/errs"
)

func testKey() []byte {
	return make([]byte, 32)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey()
	plaintext := []byte("hello, provider")
	longHash := []byte{1, 2, 3, 4}

	env, err := EncryptRecord(key, plaintext, longHash)
	require.NoError(t, err)
	require.Equal(t, len(plaintext), env.Length)

	got, err := DecryptRecord(key, env)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecryptRecordWrongKeyIsIntegrityError(t *testing.T) {
	key := testKey()
	wrongKey := testKey()
	wrongKey[0] = 1

	env, err := EncryptRecord(key, []byte("data"), []byte{1})
	require.NoError(t, err)

	_, err = DecryptRecord(wrongKey, env)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Integrity))
}

func TestDecryptRecordTamperedHashIsIntegrityError(t *testing.T) {
	key := testKey()
	env, err := EncryptRecord(key, []byte("data"), []byte{1, 2, 3})
	require.NoError(t, err)

	env.Hash = []byte{9, 9, 9}
	_, err = DecryptRecord(key, env)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Integrity))
}

func TestEnvelopeB64RoundTrip(t *testing.T) {
	key := testKey()
	env, err := EncryptRecord(key, []byte("payload"), []byte{5, 6, 7})
	require.NoError(t, err)

	m := env.B64()
	back, err := EnvelopeFromB64(m)
	require.NoError(t, err)
	require.Equal(t, env.Nonce, back.Nonce)
	require.Equal(t, env.Length, back.Length)
	require.Equal(t, env.Hash, back.Hash)
	require.Equal(t, env.Ciphertext, back.Ciphertext)
}

func TestEnvelopeFromB64InvalidInput(t *testing.T) {
	_, err := EnvelopeFromB64(map[string]string{"nonce": "not-base64!!"})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Protocol))
}
