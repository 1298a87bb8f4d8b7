package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/paramexchange/core/internal/errs"
)

// Envelope is the transportable, base64-friendly ciphertext format: AES-256-GCM
// over the plaintext, with associated data binding the plaintext's length and
// its keyed long-hash so a ciphertext can never be replayed against the
// wrong record identity.
type Envelope struct {
	Nonce      []byte `json:"nonce"`
	Length     int    `json:"length"`
	Hash       []byte `json:"hash"`
	Ciphertext []byte `json:"ciphertext"`
}

// B64 returns the envelope with every byte field base64-encoded, matching the
// original's upload format.
func (e Envelope) B64() map[string]string {
	return map[string]string{
		"nonce":      base64.StdEncoding.EncodeToString(e.Nonce),
		"length":     base64.StdEncoding.EncodeToString(binary.BigEndian.AppendUint64(nil, uint64(e.Length))),
		"hash":       base64.StdEncoding.EncodeToString(e.Hash),
		"ciphertext": base64.StdEncoding.EncodeToString(e.Ciphertext),
	}
}

// EnvelopeFromB64 parses the map produced by B64 back into an Envelope, the
// form ciphertexts arrive in from the broker's batch-retrieve endpoint.
func EnvelopeFromB64(m map[string]string) (Envelope, error) {
	nonce, err := base64.StdEncoding.DecodeString(m["nonce"])
	if err != nil {
		return Envelope{}, errs.ProtocolError("cryptoutil.EnvelopeFromB64: nonce", err)
	}
	lengthBytes, err := base64.StdEncoding.DecodeString(m["length"])
	if err != nil || len(lengthBytes) != 8 {
		return Envelope{}, errs.ProtocolError("cryptoutil.EnvelopeFromB64: length", err)
	}
	hash, err := base64.StdEncoding.DecodeString(m["hash"])
	if err != nil {
		return Envelope{}, errs.ProtocolError("cryptoutil.EnvelopeFromB64: hash", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(m["ciphertext"])
	if err != nil {
		return Envelope{}, errs.ProtocolError("cryptoutil.EnvelopeFromB64: ciphertext", err)
	}
	return Envelope{
		Nonce:      nonce,
		Length:     int(binary.BigEndian.Uint64(lengthBytes)),
		Hash:       hash,
		Ciphertext: ciphertext,
	}, nil
}

// EncryptRecord seals plaintext under key with associated data
// length(plaintext) || longHash, returning the transportable envelope.
func EncryptRecord(key []byte, plaintext []byte, longHash []byte) (Envelope, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return Envelope{}, errs.ConfigError("cryptoutil.EncryptRecord: new cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Envelope{}, errs.ConfigError("cryptoutil.EncryptRecord: new gcm", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, errs.ResourceError("cryptoutil.EncryptRecord: read nonce", err)
	}
	ad := associatedData(len(plaintext), longHash)
	ct := gcm.Seal(nil, nonce, plaintext, ad)
	return Envelope{Nonce: nonce, Length: len(plaintext), Hash: longHash, Ciphertext: ct}, nil
}

// DecryptRecord opens an envelope under key, verifying both the GCM tag and
// the associated-data binding (length and hash); either mismatch surfaces as
// an IntegrityError, never a silent accept.
func DecryptRecord(key []byte, env Envelope) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.ConfigError("cryptoutil.DecryptRecord: new cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.ConfigError("cryptoutil.DecryptRecord: new gcm", err)
	}
	ad := associatedData(env.Length, env.Hash)
	pt, err := gcm.Open(nil, env.Nonce, env.Ciphertext, ad)
	if err != nil {
		return nil, errs.IntegrityError("cryptoutil.DecryptRecord: open", err)
	}
	if len(pt) != env.Length {
		return nil, errs.IntegrityError("cryptoutil.DecryptRecord: length mismatch", fmt.Errorf("got %d want %d", len(pt), env.Length))
	}
	return pt, nil
}

func associatedData(length int, hash []byte) []byte {
	ad := make([]byte, 0, 8+len(hash))
	ad = binary.BigEndian.AppendUint64(ad, uint64(length))
	ad = append(ad, hash...)
	return ad
}
