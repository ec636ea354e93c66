package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Keypair is the relayer's ed25519 signing identity.
type Keypair struct {
	priv ed25519.PrivateKey
}

// LoadKeypair reads a Solana CLI keypair file: a JSON array of 64 bytes
// holding the seed followed by the public key.
func LoadKeypair(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair file holds %d bytes, want %d", len(ints), ed25519.PrivateKeySize)
	}
	keyBytes := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair file byte %d out of range", i)
		}
		keyBytes[i] = byte(v)
	}

	priv := ed25519.PrivateKey(keyBytes)
	// The file carries the public key alongside the seed; reject a file whose
	// halves do not belong together.
	derived := priv.Public().(ed25519.PublicKey)
	fromSeed := ed25519.NewKeyFromSeed(priv.Seed()).Public().(ed25519.PublicKey)
	if !derived.Equal(fromSeed) {
		return nil, fmt.Errorf("keypair file public key does not match its seed")
	}

	return &Keypair{priv: priv}, nil
}

// GenerateKeypair creates a fresh relayer identity, used by tests and local
// setups.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv}, nil
}

// Save writes the keypair in the Solana CLI file format.
func (k *Keypair) Save(path string) error {
	ints := make([]int, len(k.priv))
	for i, b := range k.priv {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// Sign signs a transaction message.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// PublicKey returns the hex-encoded public key.
func (k *Keypair) PublicKey() string {
	return hex.EncodeToString(k.priv.Public().(ed25519.PublicKey))
}

// PublicKeyBytes returns the raw 32-byte public key.
func (k *Keypair) PublicKeyBytes() []byte {
	return []byte(k.priv.Public().(ed25519.PublicKey))
}
