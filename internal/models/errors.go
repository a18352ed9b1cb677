package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeUsage           = "USAGE_ERROR"
	ErrCodeMarkerNotFound  = "MARKER_NOT_FOUND"
	ErrCodeMalformedBase64 = "MALFORMED_BASE64"
	ErrCodeInvalidLength   = "INVALID_LENGTH"
	ErrCodeCipherInit      = "CIPHER_INIT_ERROR"
	ErrCodeFileAccess      = "FILE_ACCESS_ERROR"
	ErrCodeDecryption      = "DECRYPTION_ERROR"
	ErrCodeStorage         = "STORAGE_ERROR"
	ErrCodeConfig          = "CONFIG_ERROR"
	ErrCodeUnknown         = "UNKNOWN_ERROR"
)

// Sentinel errors
var (
	ErrUsage           = errors.New("password and file path arguments are required")
	ErrMarkerNotFound  = errors.New("CipherValue marker not found")
	ErrMalformedBase64 = errors.New("malformed base64 payload")
	ErrInvalidLength   = errors.New("ciphertext length is not a positive multiple of the block size")
	ErrCipherInit      = errors.New("cipher initialization failed")
	ErrFileAccess      = errors.New("file access failed")
	ErrNoKEMEntry      = errors.New("archive contains no .kem entry")
	ErrUnknownEncoding = errors.New("unknown text encoding")
	ErrWrongPassword   = errors.New("decrypted content is not a meter listing, password is probably wrong")
	ErrStorage         = errors.New("storage operation failed")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// codeTable is ordered so that more specific sentinels win.
var codeTable = []struct {
	err  error
	code string
}{
	{ErrUsage, ErrCodeUsage},
	{ErrMarkerNotFound, ErrCodeMarkerNotFound},
	{ErrMalformedBase64, ErrCodeMalformedBase64},
	{ErrInvalidLength, ErrCodeInvalidLength},
	{ErrCipherInit, ErrCodeCipherInit},
	{ErrNoKEMEntry, ErrCodeFileAccess},
	{ErrFileAccess, ErrCodeFileAccess},
	{ErrWrongPassword, ErrCodeDecryption},
	{ErrStorage, ErrCodeStorage},
	{ErrUnknownEncoding, ErrCodeConfig},
	{ErrInvalidConfig, ErrCodeConfig},
}

// ErrorCode maps err to one of the ErrCode* constants.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var ee *ExtractError
	if errors.As(err, &ee) && ee.Code != "" {
		return ee.Code
	}

	for _, entry := range codeTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ErrCodeUnknown
}

// ExtractError describes a failed extraction run.
type ExtractError struct {
	Code  string
	Phase string
	Path  string
	Err   error
}

func (e *ExtractError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("extract %s [%s]: %s: %v", e.Phase, e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("extract %s [%s]: %v", e.Phase, e.Code, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError wraps err with the code derived from its sentinel.
func NewExtractError(phase, path string, err error) *ExtractError {
	return &ExtractError{
		Code:  ErrorCode(err),
		Phase: phase,
		Path:  path,
		Err:   err,
	}
}

// MeterFileError represents a failure writing a meter configuration file.
type MeterFileError struct {
	Serial string
	Path   string
	Err    error
}

func (e *MeterFileError) Error() string {
	return fmt.Sprintf("write meter file for %s at %s: %v", e.Serial, e.Path, e.Err)
}

func (e *MeterFileError) Unwrap() error {
	return e.Err
}
