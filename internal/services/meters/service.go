// Package meters turns a decrypted KEM listing into wmbusmeters meter files.
package meters

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/TheMichaelB/xmlextract/internal/events"
	"github.com/TheMichaelB/xmlextract/internal/kem"
	"github.com/TheMichaelB/xmlextract/internal/models"
	"github.com/TheMichaelB/xmlextract/internal/storage"
)

// MeterDir is the meter file directory relative to the config root.
var MeterDir = filepath.Join("etc", "wmbusmeters.d")

// Outcome describes what happened to a single meter.
type Outcome struct {
	Meter models.Meter
	// File is the written meter file, empty when nothing was written.
	File string
	// Skipped is set for meters without a known driver.
	Skipped bool
	// Kept is set when an existing meter file was left untouched.
	Kept bool
}

// Service imports meters into a wmbusmeters configuration tree.
type Service struct {
	store  storage.BlobStore
	logger *events.Logger
	dryRun bool
}

// NewService creates an importer writing through store. The store's base
// directory plays the role of the wmbusmeters config root.
func NewService(store storage.BlobStore, logger *events.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.WithField("service", "meters"),
	}
}

// SetDryRun disables writing meter files.
func (s *Service) SetDryRun(dryRun bool) {
	s.dryRun = dryRun
}

// EnsureMeterDir creates the meter file directory when it is missing. It
// returns the absolute directory and whether it had to be created.
func (s *Service) EnsureMeterDir() (string, bool, error) {
	dir, err := s.store.Resolve(MeterDir)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	exists, err := s.store.Exists(MeterDir)
	if err != nil {
		return dir, false, fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
	if exists {
		return dir, false, nil
	}

	s.logger.WithField("dir", dir).Info("Creating target folder")
	if err := s.store.EnsureDir(MeterDir); err != nil {
		return dir, false, err
	}
	return dir, true, nil
}

// Import parses plaintext and writes one file per supported meter. Meter
// files are named after the meter serial number.
func (s *Service) Import(plaintext []byte) ([]Outcome, error) {
	meters, err := kem.ParseMeters(plaintext)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("count", len(meters)).Info("Parsed meter listing")

	outcomes := make([]Outcome, 0, len(meters))
	for _, m := range meters {
		outcome, err := s.importMeter(m)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func (s *Service) importMeter(m models.Meter) (Outcome, error) {
	logger := s.logger.WithFields(map[string]interface{}{
		"meter":  m.Name,
		"serial": m.Serial,
	})

	if !m.Supported() {
		logger.Warn("No wmbusmeters driver for meter")
		return Outcome{Meter: m, Skipped: true}, nil
	}

	if s.dryRun {
		return Outcome{Meter: m}, nil
	}

	if m.Serial == "" {
		return Outcome{}, &models.MeterFileError{
			Serial: m.Serial,
			Path:   MeterDir,
			Err:    fmt.Errorf("%w: meter has no serial number", models.ErrStorage),
		}
	}

	rel := filepath.Join(MeterDir, m.Serial)
	file, err := s.store.Resolve(rel)
	if err != nil {
		file = rel
	}

	err = s.store.Write(rel, []byte(m.ConfigFile()), 0644)
	if errors.Is(err, storage.ErrSkipped) {
		logger.WithField("file", file).Info("Kept existing meter file")
		return Outcome{Meter: m, File: file, Kept: true}, nil
	}
	if err != nil {
		logger.WithError(err).Error("Failed to write meter file")
		return Outcome{}, &models.MeterFileError{Serial: m.Serial, Path: rel, Err: err}
	}

	logger.WithField("driver", m.Driver()).Info("Wrote meter file")
	return Outcome{Meter: m, File: file}, nil
}
