package extract

import (
	"github.com/TheMichaelB/xmlextract/internal/crypto"
	"github.com/TheMichaelB/xmlextract/internal/events"
	"github.com/TheMichaelB/xmlextract/internal/models"
	"github.com/TheMichaelB/xmlextract/internal/xmlenc"
)

// Phases reported in models.ExtractError.
const (
	PhaseValidate = "validate"
	PhaseRead     = "read"
	PhaseExtract  = "extract"
	PhaseDecrypt  = "decrypt"
)

// Result is the outcome of a successful run.
type Result struct {
	Path      string
	Entry     string // archive entry, empty for plain files
	Plaintext []byte
}

// Service runs the read, extract, derive and decrypt pipeline.
type Service struct {
	crypto      crypto.Provider
	logger      *events.Logger
	rawPassword bool
}

// NewService creates an extraction service.
func NewService(provider crypto.Provider, logger *events.Logger) *Service {
	return &Service{
		crypto: provider,
		logger: logger.WithField("service", "extract"),
	}
}

// SetRawPassword uses the password bytes as typed instead of uppercasing
// them before building the key.
func (s *Service) SetRawPassword(raw bool) {
	s.rawPassword = raw
}

// DecryptFile decrypts the CipherValue payload of the document at path.
// An empty password is valid and yields the all-zero key. The first failure
// aborts the run; no partial plaintext is returned.
func (s *Service) DecryptFile(password, path string) (*Result, error) {
	if path == "" {
		return nil, models.NewExtractError(PhaseValidate, path, models.ErrUsage)
	}

	logger := s.logger.WithField("document", path)
	logger.Debug("Reading document")

	doc, err := xmlenc.ReadDocument(path)
	if err != nil {
		return nil, models.NewExtractError(PhaseRead, path, err)
	}
	if doc.Entry != "" {
		logger = logger.WithField("entry", doc.Entry)
		logger.Info("Using archive entry")
	}

	plaintext, phase, err := s.decrypt(logger, doc.Text, password)
	if err != nil {
		return nil, models.NewExtractError(phase, path, err)
	}

	return &Result{
		Path:      path,
		Entry:     doc.Entry,
		Plaintext: plaintext,
	}, nil
}

// DecryptText decrypts the CipherValue payload of an in-memory document.
func (s *Service) DecryptText(text, password string) ([]byte, error) {
	plaintext, phase, err := s.decrypt(s.logger, text, password)
	if err != nil {
		return nil, models.NewExtractError(phase, "", err)
	}
	return plaintext, nil
}

// decrypt returns the plaintext, or the failing phase and its error.
func (s *Service) decrypt(logger *events.Logger, text, password string) ([]byte, string, error) {
	ciphertext, err := xmlenc.Extract(text)
	if err != nil {
		return nil, PhaseExtract, err
	}
	logger.WithField("ciphertext_bytes", len(ciphertext)).Debug("Located CipherValue")

	// The same buffer serves as key and IV.
	key := s.crypto.DeriveKey(password)
	if s.rawPassword {
		key = crypto.RawKey(password)
	}

	plaintext, err := s.crypto.Decrypt(key, key, ciphertext)
	if err != nil {
		return nil, PhaseDecrypt, err
	}
	logger.WithField("plaintext_bytes", len(plaintext)).Debug("Decrypted payload")

	return plaintext, "", nil
}
