// Package keyauth implements the key authority: the holder of the global
// hash key and the per-OT-row encryption key table, generalized from the
// teacher's file-backed singleton pattern into an explicit object with a
// load-or-generate constructor (spec.md §9 redesign note).
package keyauth

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/paramexchange/core/internal/errs"
)

// KeyAuthority holds the hash key shared with every querier/provider and
// the table of per-row AES keys released only through OT.
type KeyAuthority struct {
	mu         sync.RWMutex
	hashKey    []byte
	encKeys    [][]byte
	hashPath   string
	encPath    string
	encKeyLen  int
	hashKeyLen int
}

// LoadOrGenerate loads the hash key and encryption-key table from dataDir if
// present, or generates and persists fresh ones otherwise. Both files are
// written atomically (temp file + rename) so a crash mid-write never leaves
// a corrupt key file for the next process to load. A present file whose
// length does not match the configured key sizes is a ConfigError; it is
// never overwritten.
func LoadOrGenerate(dataDir, hashKeyPath, encKeysPath string, n, hashKeyLenBits, encKeyLenBits int) (*KeyAuthority, error) {
	ka := &KeyAuthority{
		hashPath:   filepath.Join(dataDir, hashKeyPath),
		encPath:    filepath.Join(dataDir, encKeysPath),
		encKeyLen:  encKeyLenBits / 8,
		hashKeyLen: hashKeyLenBits / 8,
	}

	hashKey, err := loadOrGenerateFile(ka.hashPath, ka.hashKeyLen)
	if err != nil {
		return nil, err
	}
	ka.hashKey = hashKey

	encBlob, err := loadOrGenerateFile(ka.encPath, ka.encKeyLen*n)
	if err != nil {
		return nil, err
	}
	ka.encKeys = make([][]byte, n)
	for i := 0; i < n; i++ {
		ka.encKeys[i] = encBlob[i*ka.encKeyLen : (i+1)*ka.encKeyLen]
	}
	return ka, nil
}

func loadOrGenerateFile(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != size {
			return nil, errs.ConfigError("keyauth.loadOrGenerateFile",
				fmt.Errorf("%s holds %d bytes, want %d", path, len(data), size))
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, errs.ResourceError("keyauth.loadOrGenerateFile: read", err)
	}

	fresh := make([]byte, size)
	if _, err := rand.Read(fresh); err != nil {
		return nil, errs.ResourceError("keyauth.loadOrGenerateFile: rand", err)
	}
	if err := writeAtomic(path, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.ResourceError("keyauth.writeAtomic: mkdir", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errs.ResourceError("keyauth.writeAtomic: write", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.ResourceError("keyauth.writeAtomic: rename", err)
	}
	return nil
}

// HashKey returns the global keyed-hash key every party uses to derive
// PSI/OT indices.
func (ka *KeyAuthority) HashKey() []byte {
	ka.mu.RLock()
	defer ka.mu.RUnlock()
	out := make([]byte, len(ka.hashKey))
	copy(out, ka.hashKey)
	return out
}

// EncKeyTable returns the full table of per-row encryption keys, the
// messages an OT sender session (internal/ot.RunSender) transfers.
func (ka *KeyAuthority) EncKeyTable() [][]byte {
	ka.mu.RLock()
	defer ka.mu.RUnlock()
	out := make([][]byte, len(ka.encKeys))
	for i, k := range ka.encKeys {
		cp := make([]byte, len(k))
		copy(cp, k)
		out[i] = cp
	}
	return out
}

// EncKeyAt returns a single row's encryption key directly, without OT; the
// provider and querier obtain row keys through OT instead.
func (ka *KeyAuthority) EncKeyAt(row int) ([]byte, error) {
	ka.mu.RLock()
	defer ka.mu.RUnlock()
	if row < 0 || row >= len(ka.encKeys) {
		return nil, errs.ProtocolError("keyauth.EncKeyAt", errRowOutOfRange)
	}
	out := make([]byte, len(ka.encKeys[row]))
	copy(out, ka.encKeys[row])
	return out, nil
}
