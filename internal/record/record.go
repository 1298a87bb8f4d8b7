// Package record implements the rounded-record codec (C1): quantising a raw
// parameter vector, deriving its keyed identity hash, and sealing/opening it
// as an authenticated ciphertext envelope.
package record

import (
	"math/big"

	"github.com/paramexchange/core/internal/cryptoutil"
	"github.com/paramexchange/core/internal/errs"
)

// Envelope is the transportable ciphertext format; re-exported so callers
// never need to import cryptoutil directly for this type.
type Envelope = cryptoutil.Envelope

// Config fixes the record shape: how many values a record holds, how many
// of its leading values form the identity ("ID"), and the per-position
// rounding significance applied before hashing.
type Config struct {
	RecordLength int
	IDLength     int
	RoundingVec  []int
	PSIIndexLen  int
	OTIndexLen   int
}

// Validate checks internal consistency, returning a ConfigError otherwise.
func (c Config) Validate() error {
	if len(c.RoundingVec) != c.IDLength {
		return errs.ConfigError("record.Config.Validate", errIncompatibleRounding)
	}
	if c.IDLength > c.RecordLength {
		return errs.ConfigError("record.Config.Validate", errIDLongerThanRecord)
	}
	return nil
}

// Record wraps a raw value vector with its Config and lazily computes the
// derived quantities the rest of the system needs: the rounded identity, the
// keyed long-hash, and the PSI/OT indices extracted from it.
type Record struct {
	cfg    Config
	Values []float64
	Owner  string

	roundedID []float64
	longHash  *[64]byte
	psiIndex  *big.Int
	otIndex   *big.Int
}

// New constructs a Record for the given config, validating the value count.
func New(cfg Config, values []float64, owner string) (*Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(values) != cfg.RecordLength {
		return nil, errs.ConfigError("record.New", errWrongValueCount)
	}
	return &Record{cfg: cfg, Values: values, Owner: owner}, nil
}

// RoundedID returns the record's identity values, each rounded to its
// configured significance.
func (r *Record) RoundedID() []float64 {
	if r.roundedID == nil {
		id := make([]float64, r.cfg.IDLength)
		for i := 0; i < r.cfg.IDLength; i++ {
			id[i] = cryptoutil.Round(r.Values[i], r.cfg.RoundingVec[i])
		}
		r.roundedID = id
	}
	return r.roundedID
}

// LongHash returns the keyed SHA3-512 digest of the rounded identity.
func (r *Record) LongHash(hashKey []byte) [64]byte {
	if r.longHash == nil {
		h := cryptoutil.LongHash(hashKey, r.RoundedID())
		r.longHash = &h
	}
	return *r.longHash
}

// PSIIndex returns the low PSIIndexLen bits of the long-hash, used to place
// this record in the PSI cuckoo table.
func (r *Record) PSIIndex(hashKey []byte) *big.Int {
	if r.psiIndex == nil {
		h := r.LongHash(hashKey)
		r.psiIndex = cryptoutil.HashToIndex(h[:], r.cfg.PSIIndexLen)
	}
	return r.psiIndex
}

// OTIndex returns the low OTIndexLen bits of the long-hash, used to select
// which row of the encryption-key table protects this record.
func (r *Record) OTIndex(hashKey []byte) *big.Int {
	if r.otIndex == nil {
		h := r.LongHash(hashKey)
		r.otIndex = cryptoutil.HashToIndex(h[:], r.cfg.OTIndexLen)
	}
	return r.otIndex
}

// Encrypt seals the record's full value vector under key, as little-endian
// IEEE-754 doubles, binding the associated data to the record's own
// long-hash.
func (r *Record) Encrypt(hashKey, encKey []byte) (Envelope, error) {
	plaintext := encodeValues(r.Values)
	h := r.LongHash(hashKey)
	return cryptoutil.EncryptRecord(encKey, plaintext, h[:])
}

// FromCiphertext decrypts an envelope and re-derives its indices, verifying
// that the decrypted values actually hash to the envelope's claimed
// long-hash under hashKey.
func FromCiphertext(cfg Config, env Envelope, hashKey, encKey []byte, owner string) (*Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	plaintext, err := cryptoutil.DecryptRecord(encKey, env)
	if err != nil {
		return nil, err
	}
	values, err := decodeValues(plaintext)
	if err != nil {
		return nil, errs.IntegrityError("record.FromCiphertext: parse", err)
	}
	rec := &Record{cfg: cfg, Values: padToRecordLength(values, cfg.RecordLength), Owner: owner}
	h := rec.LongHash(hashKey)
	if !bytesEqual(h[:], env.Hash) {
		return nil, errs.IntegrityError("record.FromCiphertext: hash mismatch", errHashMismatch)
	}
	return rec, nil
}

func padToRecordLength(values []float64, n int) []float64 {
	if len(values) >= n {
		return values[:n]
	}
	out := make([]float64, n)
	copy(out, values)
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
