// Package cryptotest builds encrypted fixtures for tests.
package cryptotest

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"
)

// KeyVector is a known password to key material pair.
type KeyVector struct {
	Name     string
	Password string
	Key      string // Hex, 16 bytes
}

// KeyVectors contains derivation vectors.
var KeyVectors = []KeyVector{
	{
		Name:     "short lowercase",
		Password: "test",
		Key:      "54455354000000000000000000000000",
	},
	{
		Name:     "three bytes",
		Password: "abc",
		Key:      "41424300000000000000000000000000",
	},
	{
		Name:     "exactly sixteen",
		Password: "0123456789abcdef",
		Key:      "30313233343536373839414243444546",
	},
	{
		Name:     "twenty bytes truncated",
		Password: "abcdefghijklmnopqrst",
		Key:      "4142434445464748494a4b4c4d4e4f50",
	},
	{
		Name:     "empty",
		Password: "",
		Key:      "00000000000000000000000000000000",
	},
	{
		Name:     "multibyte utf-8",
		Password: "é",
		Key:      "c3890000000000000000000000000000",
	},
}

// Seal encrypts plaintext with AES-CBC and no padding. len(plaintext) must
// be a multiple of the block size.
func Seal(key, iv, plaintext []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	if len(plaintext)%aes.BlockSize != 0 {
		panic(fmt.Sprintf("plaintext length %d is not block aligned", len(plaintext)))
	}

	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out
}

// Envelope wraps ciphertext in an XML-Encryption document. When lineWidth
// is positive the Base64 payload is broken with CRLF every lineWidth chars.
func Envelope(ciphertext []byte, lineWidth int) string {
	payload := base64.StdEncoding.EncodeToString(ciphertext)
	if lineWidth > 0 {
		var sb strings.Builder
		for i := 0; i < len(payload); i += lineWidth {
			end := min(i+lineWidth, len(payload))
			sb.WriteString(payload[i:end])
			if end < len(payload) {
				sb.WriteString("\r\n")
			}
		}
		payload = sb.String()
	}

	return `<?xml version="1.0" encoding="utf-8"?>
<EncryptedData Type="http://www.w3.org/2001/04/xmlenc#Element" xmlns="http://www.w3.org/2001/04/xmlenc#">
<EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes128-cbc" />
<CipherData>
<CipherValue>` + payload + `</CipherValue>
</CipherData>
</EncryptedData>
`
}

// PadZero right-pads s with zero bytes to a block boundary.
func PadZero(s string) []byte {
	b := []byte(s)
	if rem := len(b) % aes.BlockSize; rem != 0 || len(b) == 0 {
		b = append(b, make([]byte, aes.BlockSize-rem)...)
	}
	return b
}
