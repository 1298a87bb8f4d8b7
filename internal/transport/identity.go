package transport

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/hex"

	"github.com/paramexchange/core/internal/errs"
)

// GenerateIdentityKey creates a fresh X25519 keypair for a node's peer
// identity (config.PrivateKey/PublicKey), adapted from the teacher's
// key_generator.go, generalized from a one-off helper into the identity
// primitive every node (querier, provider, key authority, broker) loads
// or generates once at startup.
func GenerateIdentityKey() *ecdh.PrivateKey {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		panic(err) // crypto/rand failing is unrecoverable
	}
	return priv
}

// IdentityKeyFromHex parses a hex-encoded X25519 private key, the format
// config.PrivateKey is stored in.
func IdentityKeyFromHex(hexStr string) (*ecdh.PrivateKey, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, errs.ConfigError("transport.IdentityKeyFromHex: decode", err)
	}
	priv, err := ecdh.X25519().NewPrivateKey(raw)
	if err != nil {
		return nil, errs.ConfigError("transport.IdentityKeyFromHex: parse", err)
	}
	return priv, nil
}
