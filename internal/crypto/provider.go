package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

const (
	// KeySize is the AES-128 key length, also used as the IV length.
	KeySize = 16

	// BlockSize is the AES block size.
	BlockSize = aes.BlockSize
)

// KeyMaterial is the 16-byte buffer used as both AES key and CBC IV.
//
// The scheme (uppercased password, truncated or zero-padded) is not a KDF.
// It exists only to read files produced by existing tooling.
type KeyMaterial [KeySize]byte

// Bytes returns the key material as a slice.
func (k KeyMaterial) Bytes() []byte {
	return k[:]
}

// CryptoProvider implements Provider with the standard library AES.
type CryptoProvider struct {
	upper cases.Caser
}

// NewProvider creates a crypto provider.
func NewProvider() Provider {
	return &CryptoProvider{
		upper: cases.Upper(language.Und),
	}
}

// DeriveKey derives key material from a password.
func (p *CryptoProvider) DeriveKey(password string) KeyMaterial {
	var key KeyMaterial
	copy(key[:], p.upper.String(password))
	return key
}

// Decrypt decrypts ciphertext with AES-CBC. Padding is left in place.
func (p *CryptoProvider) Decrypt(key, iv KeyMaterial, ciphertext []byte) ([]byte, error) {
	return Decrypt(key, iv, ciphertext)
}

// DeriveKey derives key material using a fresh provider.
func DeriveKey(password string) KeyMaterial {
	// cases.Caser is stateful, so a shared one is not safe for concurrent use.
	return NewProvider().DeriveKey(password)
}

// RawKey copies the password bytes into key material without uppercasing.
// Some exporters seal KEM files with the password exactly as typed.
func RawKey(password string) KeyMaterial {
	var key KeyMaterial
	copy(key[:], password)
	return key
}

// Decrypt decrypts ciphertext in CBC mode. The output has the same length
// as the input and ciphertext is left untouched.
func Decrypt(key, iv KeyMaterial, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", models.ErrInvalidLength, len(ciphertext))
	}

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCipherInit, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv.Bytes()).CryptBlocks(plaintext, ciphertext)

	return plaintext, nil
}
