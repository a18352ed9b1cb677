package xmlenc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

// kemExtensions lists archive entry suffixes holding an encrypted document.
var kemExtensions = []string{".kem", ".kem2"}

var zipMagic = []byte("PK\x03\x04")

// Document is the text of an encrypted document and where it came from.
type Document struct {
	Path  string
	Entry string // archive entry name, empty for plain files
	Text  string
}

// ReadDocument reads the file at path. Zip archives are opened and their
// first .kem or .kem2 entry is returned instead.
func ReadDocument(filePath string) (*Document, error) {
	data, err := readFile(filePath)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, zipMagic) {
		return &Document{Path: filePath, Text: string(data)}, nil
	}

	entry, text, err := readArchive(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return &Document{Path: filePath, Entry: entry, Text: text}, nil
}

func readFile(filePath string) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFileAccess, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrFileAccess, filePath, err)
	}
	return data, nil
}

func readArchive(data []byte) (string, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", fmt.Errorf("%w: open archive: %v", models.ErrFileAccess, err)
	}

	for _, f := range zr.File {
		if !isKEMEntry(f.Name) {
			continue
		}

		text, err := readEntry(f)
		if err != nil {
			return "", "", err
		}
		return f.Name, text, nil
	}

	return "", "", models.ErrNoKEMEntry
}

func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open entry %s: %v", models.ErrFileAccess, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: read entry %s: %v", models.ErrFileAccess, f.Name, err)
	}
	return string(data), nil
}

func isKEMEntry(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range kemExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
