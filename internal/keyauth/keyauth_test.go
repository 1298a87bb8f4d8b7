package keyauth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateCreatesKeys(t *testing.T) {
	dir := t.TempDir()
	ka, err := LoadOrGenerate(dir, "hash.bin", "enc.bin", 4, 128, 128)
	require.NoError(t, err)
	require.Len(t, ka.HashKey(), 16)
	require.Len(t, ka.EncKeyTable(), 4)
	for _, k := range ka.EncKeyTable() {
		require.Len(t, k, 16)
	}
}

func TestLoadOrGeneratePersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	first, err := LoadOrGenerate(dir, "hash.bin", "enc.bin", 2, 128, 128)
	require.NoError(t, err)

	second, err := LoadOrGenerate(dir, "hash.bin", "enc.bin", 2, 128, 128)
	require.NoError(t, err)

	require.Equal(t, first.HashKey(), second.HashKey())
	require.Equal(t, first.EncKeyTable(), second.EncKeyTable())
}

func TestLoadOrGenerateWritesFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadOrGenerate(dir, "hash.bin", "enc.bin", 3, 128, 128)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "hash.bin"))
	require.FileExists(t, filepath.Join(dir, "enc.bin"))
}

func TestEncKeyAtOutOfRange(t *testing.T) {
	dir := t.TempDir()
	ka, err := LoadOrGenerate(dir, "hash.bin", "enc.bin", 2, 128, 128)
	require.NoError(t, err)

	_, err = ka.EncKeyAt(5)
	require.Error(t, err)

	k, err := ka.EncKeyAt(0)
	require.NoError(t, err)
	require.Len(t, k, 16)
}

func TestHashKeyReturnsDefensiveCopy(t *testing.T) {
	dir := t.TempDir()
	ka, err := LoadOrGenerate(dir, "hash.bin", "enc.bin", 1, 128, 128)
	require.NoError(t, err)

	k := ka.HashKey()
	k[0] ^= 0xFF
	require.NotEqual(t, k, ka.HashKey())
}
