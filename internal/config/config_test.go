package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetDefaultsFillsDocumentedValues(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	require.Equal(t, 100, cfg.Record.Length)
	require.Equal(t, 10, cfg.Record.IDLength)
	require.Len(t, cfg.Record.RoundingVec, 10)
	require.Equal(t, 1<<20, cfg.OT.SetSize)
	require.Equal(t, 10, cfg.OT.MaxNum)
	require.Equal(t, 128, cfg.OT.InputBitCount)
	require.Equal(t, "KKRT16", cfg.PSI.Scheme)
	require.Equal(t, 127, cfg.PSI.IndexLen)
	require.Equal(t, "storage.bloom", cfg.Bloom.FilePath)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaultsMaliciousSecureInputBitCount(t *testing.T) {
	var cfg Config
	cfg.OT.MaliciousSecure = true
	cfg.SetDefaults()
	require.Equal(t, 76, cfg.OT.InputBitCount)
}

func TestValidateRejectsMismatchedRoundingVec(t *testing.T) {
	cfg := Config{Record: RecordConfig{Length: 10, IDLength: 3, RoundingVec: []int{1, 2}}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsMaliciousSecureWithWrongBitCount(t *testing.T) {
	cfg := Config{
		Record: RecordConfig{Length: 10, IDLength: 2, RoundingVec: []int{1, 2}},
		OT:     OTConfig{MaliciousSecure: true, InputBitCount: 128},
	}
	require.Error(t, cfg.Validate())
}

func TestLoadReadsYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "record:\n  length: 5\n  id_length: 2\n  rounding_vec: [1, 2]\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Record.Length)
	require.Equal(t, 2, cfg.Record.IDLength)
	require.Equal(t, 1<<20, cfg.OT.SetSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
