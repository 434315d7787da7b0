package psgc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCityName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"psgc canonical form", "City of Trece Martires", "Trece Martires City"},
		{"already display form", "Trece Martires City", "Trece Martires City"},
		{"municipality without prefix", "Silang", "Silang"},
		{"prefix mid-name untouched", "Bacood City of Dreams", "Bacood City of Dreams"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCityName(tt.input))
		})
	}
}

func TestLookupZip(t *testing.T) {
	zip, ok := LookupZip("Trece Martires City")
	assert.True(t, ok)
	assert.Equal(t, "4109", zip)

	zip, ok = LookupZip("City of Trece Martires")
	assert.True(t, ok)
	assert.Equal(t, "4109", zip)

	zip, ok = LookupZip("Pateros")
	assert.True(t, ok)
	assert.Equal(t, "1620", zip)

	zip, ok = LookupZip("Atlantis")
	assert.False(t, ok)
	assert.Empty(t, zip)
}
