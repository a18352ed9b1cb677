// Package transcode renders decrypted bytes as text.
package transcode

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "utf-8"

// Lookup resolves an encoding by its WHATWG or IANA name.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEncoding, name)
	}
	return enc, nil
}

// Decode converts data from the named encoding to a Go string. Invalid
// sequences become U+FFFD; decoding never fails once the encoding resolves.
func Decode(data []byte, name string) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}
