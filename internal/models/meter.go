package models

import "strings"

// Meter is one entry of a decrypted KEM meter listing.
type Meter struct {
	Name            string `json:"name"`
	ConsumptionType string `json:"consumption_type"`
	Number          string `json:"number"`
	Serial          string `json:"serial"`
	Vendor          string `json:"vendor"`
	Config          string `json:"config"`
	Model           string `json:"model"`
	Key             string `json:"key"`
}

// driverRule matches a meter name and model prefix to a wmbusmeters driver.
type driverRule struct {
	name        string
	modelPrefix string
	driver      string
}

var driverRules = []driverRule{
	{"MC302", "302T", "multical302"},
	{"MC303", "303", "multical303"},
	{"MC403", "403", "multical403"},
	{"MC21", "021", "multical21"},
	{"MC603", "603", "multical603"},
	{"KWM2210", "", "flowiq2200"},
}

// Driver returns the wmbusmeters driver for the meter, or "" if unsupported.
func (m Meter) Driver() string {
	for _, r := range driverRules {
		if m.Name == r.name && strings.HasPrefix(m.Model, r.modelPrefix) {
			return r.driver
		}
	}
	return ""
}

// Supported reports whether a wmbusmeters driver is known for the meter.
func (m Meter) Supported() bool {
	return m.Driver() != ""
}

// ConfigFile renders the wmbusmeters meter file contents.
func (m Meter) ConfigFile() string {
	var sb strings.Builder
	sb.WriteString("name=" + m.Number + "\n")
	sb.WriteString("driver=" + m.Driver() + "\n")
	sb.WriteString("id=" + m.Serial + "\n")
	sb.WriteString("key=" + m.Key + "\n")
	return sb.String()
}
