package crypto_test

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/TheMichaelB/xmlextract/internal/crypto"
)

func BenchmarkDeriveKey(b *testing.B) {
	provider := crypto.NewProvider()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = provider.DeriveKey("CustomerId")
	}
}

func BenchmarkDecrypt(b *testing.B) {
	provider := crypto.NewProvider()
	key := provider.DeriveKey("CustomerId")
	sizes := []int{1024, 64 * 1024, 1024 * 1024}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%dKB", size/1024), func(b *testing.B) {
			ciphertext := make([]byte, size)
			_, _ = rand.Read(ciphertext)

			b.SetBytes(int64(size))
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := provider.Decrypt(key, key, ciphertext); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
