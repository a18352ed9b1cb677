// Package xmlenc locates the encrypted payload of an XML-Encryption document.
//
// The document is treated as text: no XML parsing happens. The payload is
// whatever sits between the first <CipherValue> and the first </CipherValue>
// after it, once every line break has been removed.
package xmlenc

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

const (
	OpenMarker  = "<CipherValue>"
	CloseMarker = "</CipherValue>"
)

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// StripLineBreaks joins all lines of text without a separator.
func StripLineBreaks(text string) string {
	return lineBreaks.Replace(text)
}

// Payload returns the raw Base64 text between the CipherValue markers.
func Payload(text string) (string, error) {
	joined := StripLineBreaks(text)

	start := strings.Index(joined, OpenMarker)
	if start < 0 {
		return "", fmt.Errorf("%w: missing %s", models.ErrMarkerNotFound, OpenMarker)
	}
	start += len(OpenMarker)

	end := strings.Index(joined[start:], CloseMarker)
	if end < 0 {
		return "", fmt.Errorf("%w: missing %s", models.ErrMarkerNotFound, CloseMarker)
	}

	return joined[start : start+end], nil
}

// Extract returns the decoded ciphertext embedded in text.
func Extract(text string) ([]byte, error) {
	payload, err := Payload(text)
	if err != nil {
		return nil, err
	}

	return decodeBase64(payload)
}

// decodeBase64 decodes the standard alphabet. Trailing '=' padding is
// honoured when present and not required when absent.
func decodeBase64(payload string) ([]byte, error) {
	enc := base64.StdEncoding
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 {
		enc = base64.RawStdEncoding
	}

	data, err := enc.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedBase64, err)
	}
	return data, nil
}
