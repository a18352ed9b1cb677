// Package kem reads the meter listing carried inside a decrypted KEM file.
package kem

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

// Listing dialects found in KEM exports.
const (
	RootMetersInOrder = "MetersInOrder"
	RootDevices       = "Devices"
)

// fieldMap names the child elements holding each meter attribute.
type fieldMap struct {
	item        string
	name        string
	consumption string
	number      string
	serial      string
	vendor      string
	config      string
	model       string
	key         string
}

var dialects = map[string]fieldMap{
	RootMetersInOrder: {
		item:        "Meter",
		name:        "MeterName",
		consumption: "ConsumptionType",
		number:      "MeterNo",
		serial:      "SerialNo",
		vendor:      "VendorId",
		config:      "ConfigNo",
		model:       "TypeNo",
		key:         "DEK",
	},
	RootDevices: {
		item:        "Device",
		name:        "ShortName",
		consumption: "ConsumptionTypeName",
		number:      "CustomerDeviceNumber",
		serial:      "SerialNumber",
		vendor:      "ManufacturerId",
		config:      "ConfigNumber",
		model:       "TypeNumber",
		key:         "Value",
	},
}

// ParseMeters parses decrypted KEM plaintext into meters. Content that is
// not valid UTF-8 or not a known listing yields models.ErrWrongPassword.
func ParseMeters(plaintext []byte) ([]models.Meter, error) {
	if !utf8.Valid(plaintext) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", models.ErrWrongPassword)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = passthroughCharset
	if err := doc.ReadFromString(Sanitize(string(plaintext))); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrWrongPassword, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", models.ErrWrongPassword)
	}

	fields, ok := dialects[root.Tag]
	if !ok {
		return nil, fmt.Errorf("%w: unexpected root element %q", models.ErrWrongPassword, root.Tag)
	}

	var meters []models.Meter
	for _, e := range root.FindElements(".//" + fields.item) {
		meters = append(meters, models.Meter{
			Name:            text(e, fields.name),
			ConsumptionType: text(e, fields.consumption),
			Number:          text(e, fields.number),
			Serial:          text(e, fields.serial),
			Vendor:          text(e, fields.vendor),
			Config:          text(e, fields.config),
			Model:           text(e, fields.model),
			Key:             text(e, fields.key),
		})
	}

	return meters, nil
}

// Sanitize drops control characters and the U+007F..U+00FF range, which
// show up as padding and stray bytes around the decrypted XML.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r >= 0x7f && r <= 0xff:
			return -1
		}
		return r
	}, s)
}

func text(e *etree.Element, tag string) string {
	child := e.FindElement(".//" + tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

// passthroughCharset accepts any declared encoding; the content was already
// checked to be UTF-8.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}
