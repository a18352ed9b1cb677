package crypto

// Provider defines the interface for cryptographic operations.
type Provider interface {
	// DeriveKey turns a password into key material.
	DeriveKey(password string) KeyMaterial

	// Decrypt runs AES-CBC without padding removal.
	Decrypt(key, iv KeyMaterial, ciphertext []byte) ([]byte, error)
}
