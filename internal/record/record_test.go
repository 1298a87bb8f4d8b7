package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paramexchange/core/internal/errs"
)

func testConfig() Config {
	return Config{
		RecordLength: 3,
		IDLength:     2,
		RoundingVec:  []int{3, 3},
		PSIIndexLen:  16,
		OTIndexLen:   16,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	bad := testConfig()
	bad.RoundingVec = []int{3}
	require.True(t, errs.Is(bad.Validate(), errs.Config))

	bad2 := testConfig()
	bad2.IDLength = 5
	require.True(t, errs.Is(bad2.Validate(), errs.Config))
}

func TestNewRejectsWrongValueCount(t *testing.T) {
	_, err := New(testConfig(), []float64{1, 2}, "acme")
	require.True(t, errs.Is(err, errs.Config))
}

func TestRoundedIDMatchesRoundingVec(t *testing.T) {
	rec, err := New(testConfig(), []float64{1.1111, 22.2222, 5}, "acme")
	require.NoError(t, err)
	require.Equal(t, []float64{1.11, 22.2}, rec.RoundedID())
}

func TestLongHashStableAcrossCalls(t *testing.T) {
	rec, err := New(testConfig(), []float64{1.1111, 22.2222, 5}, "acme")
	require.NoError(t, err)
	key := []byte("hk")
	require.Equal(t, rec.LongHash(key), rec.LongHash(key))
}

func TestIndicesDeriveFromLongHash(t *testing.T) {
	rec, err := New(testConfig(), []float64{1.1111, 22.2222, 5}, "acme")
	require.NoError(t, err)
	key := []byte("hk")
	h := rec.LongHash(key)

	psi := rec.PSIIndex(key)
	require.True(t, psi.BitLen() <= 16)
	ot := rec.OTIndex(key)
	require.True(t, ot.BitLen() <= 16)
	require.NotNil(t, h)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cfg := testConfig()
	rec, err := New(cfg, []float64{1.1111, 22.2222, 5}, "acme")
	require.NoError(t, err)

	hashKey := []byte("hash-key")
	encKey := make([]byte, 32)

	env, err := rec.Encrypt(hashKey, encKey)
	require.NoError(t, err)

	back, err := FromCiphertext(cfg, env, hashKey, encKey, "")
	require.NoError(t, err)
	require.Equal(t, rec.RoundedID(), back.RoundedID())
}

func TestEncodeValuesIsLittleEndianDoubles(t *testing.T) {
	buf := encodeValues([]float64{1.5, -2.25})
	require.Len(t, buf, 16)

	back, err := decodeValues(buf)
	require.NoError(t, err)
	require.Equal(t, []float64{1.5, -2.25}, back)
}

func TestEncryptPlaintextIsFullRecordNotRoundedID(t *testing.T) {
	cfg := testConfig()
	rec, err := New(cfg, []float64{1.1111, 22.2222, 5}, "acme")
	require.NoError(t, err)

	hashKey := []byte("hash-key")
	encKey := make([]byte, 32)
	env, err := rec.Encrypt(hashKey, encKey)
	require.NoError(t, err)

	back, err := FromCiphertext(cfg, env, hashKey, encKey, "")
	require.NoError(t, err)
	// the plaintext carries the exact, unrounded values of the full record,
	// not just the rounded identity prefix used for hashing.
	require.Equal(t, []float64{1.1111, 22.2222, 5}, back.Values)
}

func TestFromCiphertextDetectsHashMismatch(t *testing.T) {
	cfg := testConfig()
	rec, err := New(cfg, []float64{1.1111, 22.2222, 5}, "acme")
	require.NoError(t, err)

	hashKey := []byte("hash-key")
	encKey := make([]byte, 32)
	env, err := rec.Encrypt(hashKey, encKey)
	require.NoError(t, err)

	// AES-GCM opens fine (the associated data is built from the envelope's
	// own length and hash, and the encryption key is right), but the long-hash recomputed under a
	// different hash key differs from the envelope's, so the hash-mismatch
	// check rejects it.
	_, err = FromCiphertext(cfg, env, []byte("other-key"), encKey, "")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Integrity))
}
