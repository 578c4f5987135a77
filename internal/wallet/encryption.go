package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption errors.
var (
	ErrCiphertextShort = errors.New("encrypted blob too short")
	ErrBlobVersion     = errors.New("unsupported encrypted blob version")
	ErrBlobParams      = errors.New("key derivation parameters out of range")
	ErrDecrypt         = errors.New("wrong password or corrupted blob")
)

// Blob layout:
// version(1) | salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
const (
	blobVersion = 1
	SaltSize    = 32
	headerSize  = 1 + SaltSize + 4 + 4 + 1

	// MaxMemory bounds the Argon2 memory a blob header may request (KiB).
	MaxMemory = 1 << 21
)

// EncryptionParams holds the Argon2id cost parameters.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the interactive Argon2id costs.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

func (p EncryptionParams) validate() error {
	if p.Memory == 0 || p.Memory > MaxMemory || p.Iterations == 0 || p.Parallelism == 0 {
		return fmt.Errorf("%w: memory=%d iterations=%d parallelism=%d", ErrBlobParams, p.Memory, p.Iterations, p.Parallelism)
	}
	return nil
}

func deriveKey(password, salt []byte, p EncryptionParams) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Encrypt seals data under password with Argon2id and XChaCha20-Poly1305.
// The header is authenticated as additional data.
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+chacha20poly1305.NonceSizeX+len(data)+chacha20poly1305.Overhead)
	out[0] = blobVersion
	salt := out[1 : 1+SaltSize]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	binary.LittleEndian.PutUint32(out[1+SaltSize:], params.Memory)
	binary.LittleEndian.PutUint32(out[5+SaltSize:], params.Iterations)
	out[9+SaltSize] = params.Parallelism

	key := deriveKey(password, salt, params)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	header := append([]byte(nil), out[:headerSize]...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, header), nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(blob, password []byte) ([]byte, error) {
	minSize := headerSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(blob) < minSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrCiphertextShort, len(blob), minSize)
	}
	if blob[0] != blobVersion {
		return nil, fmt.Errorf("%w: %d", ErrBlobVersion, blob[0])
	}

	header := blob[:headerSize]
	salt := header[1 : 1+SaltSize]
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(header[1+SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(header[5+SaltSize:]),
		Parallelism: header[9+SaltSize],
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	nonce := blob[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	ciphertext := blob[headerSize+chacha20poly1305.NonceSizeX:]

	key := deriveKey(password, salt, params)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// EncryptMnemonic validates and seals a mnemonic for export.
func EncryptMnemonic(mnemonic string, password []byte, params EncryptionParams) ([]byte, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return Encrypt([]byte(mnemonic), password, params)
}

// DecryptMnemonic opens an exported mnemonic and checks it is still valid.
func DecryptMnemonic(blob, password []byte) (string, error) {
	plain, err := Decrypt(blob, password)
	if err != nil {
		return "", err
	}
	mnemonic := string(plain)
	zero(plain)
	if !ValidateMnemonic(mnemonic) {
		return "", ErrInvalidMnemonic
	}
	return mnemonic, nil
}
