// Package vaultcrypto computes the shielded-pool primitives: Poseidon-based
// commitments binding (amount, secret) and nullifiers binding
// (commitment, secret). The construction must match the withdrawal circuit:
//
//	commitment = Poseidon(amount, secret)
//	nullifier  = Poseidon(commitment, secret)
//
// All inputs are reduced into the bn254 scalar field before hashing so the
// digest agrees with the in-circuit computation.
package vaultcrypto

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// HashSize is the byte length of commitments, nullifiers and secrets.
const HashSize = 32

func hashPair(a, b []byte) ([]byte, error) {
	var ea, eb fr.Element
	ea.SetBytes(a)
	eb.SetBytes(b)

	h := poseidon2.NewMerkleDamgardHasher()
	if _, err := h.Write(ea.Marshal()); err != nil {
		return nil, fmt.Errorf("poseidon write: %w", err)
	}
	if _, err := h.Write(eb.Marshal()); err != nil {
		return nil, fmt.Errorf("poseidon write: %w", err)
	}
	return h.Sum(nil), nil
}

// Commitment derives the deposit commitment for an amount in lamports and a
// 32-byte secret.
func Commitment(amount uint64, secret []byte) ([]byte, error) {
	if len(secret) != HashSize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", HashSize, len(secret))
	}
	var amountBytes [HashSize]byte
	binary.BigEndian.PutUint64(amountBytes[HashSize-8:], amount)
	return hashPair(amountBytes[:], secret)
}

// Nullifier derives the spend nullifier for a commitment and its secret.
func Nullifier(commitment, secret []byte) ([]byte, error) {
	if len(commitment) != HashSize {
		return nil, fmt.Errorf("commitment must be %d bytes, got %d", HashSize, len(commitment))
	}
	if len(secret) != HashSize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", HashSize, len(secret))
	}
	return hashPair(commitment, secret)
}

// NewSecret samples a uniformly random field element usable as a note secret.
func NewSecret() ([]byte, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, fmt.Errorf("sample secret: %w", err)
	}
	return e.Marshal(), nil
}

// DecodeHex32 parses a 64-character bare-hex string into 32 bytes.
func DecodeHex32(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return nil, fmt.Errorf("expected %d bytes, got %d", HashSize, len(b))
	}
	return b, nil
}
