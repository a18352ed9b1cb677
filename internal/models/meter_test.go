package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

func TestMeterDriver(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"MC302", "302T0001", "multical302"},
		{"MC302", "402T0001", ""},
		{"MC303", "303A", "multical303"},
		{"MC403", "403B", "multical403"},
		{"MC21", "021XYZ", "multical21"},
		{"MC603", "6030", "multical603"},
		{"KWM2210", "anything", "flowiq2200"},
		{"XYZ", "302T", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.model, func(t *testing.T) {
			m := models.Meter{Name: tt.name, Model: tt.model}
			assert.Equal(t, tt.want, m.Driver())
			assert.Equal(t, tt.want != "", m.Supported())
		})
	}
}

func TestMeterConfigFile(t *testing.T) {
	m := models.Meter{
		Name:   "MC21",
		Number: "kitchen",
		Serial: "12345678",
		Model:  "021A",
		Key:    "00112233445566778899AABBCCDDEEFF",
	}

	want := "name=kitchen\n" +
		"driver=multical21\n" +
		"id=12345678\n" +
		"key=00112233445566778899AABBCCDDEEFF\n"
	assert.Equal(t, want, m.ConfigFile())
}
