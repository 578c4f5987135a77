package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PubKeySize is the length of a compressed secp256k1 public key.
const PubKeySize = 33

// PubKey identifies the owner of value on the ledger.
// It is a fixed-size array so owner comparison is always by key material.
type PubKey [PubKeySize]byte

// PubKeyFromBytes copies a 33-byte compressed public key.
func PubKeyFromBytes(b []byte) (PubKey, error) {
	if len(b) != PubKeySize {
		return PubKey{}, fmt.Errorf("public key must be %d bytes, got %d", PubKeySize, len(b))
	}
	var pk PubKey
	copy(pk[:], b)
	return pk, nil
}

// HexToPubKey parses a 66-character hex public key.
func HexToPubKey(s string) (PubKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PubKey{}, fmt.Errorf("invalid hex: %w", err)
	}
	return PubKeyFromBytes(b)
}

// IsZero returns true if no key is set.
func (p PubKey) IsZero() bool {
	return p == PubKey{}
}

// String returns the hex-encoded key.
func (p PubKey) String() string {
	return hex.EncodeToString(p[:])
}

// Short returns the first 8 hex characters, for log lines.
func (p PubKey) Short() string {
	return p.String()[:8]
}

// Bytes returns a copy of the key as a byte slice.
func (p PubKey) Bytes() []byte {
	b := make([]byte, PubKeySize)
	copy(b, p[:])
	return b
}

// MarshalJSON encodes the key as a hex string.
func (p PubKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a hex string into a key.
func (p *PubKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = PubKey{}
		return nil
	}
	decoded, err := HexToPubKey(s)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
