package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Living Room", "living-room"},
		{"Voordeur", "voordeur"},
		{"Zolder PIR  2", "zolder-pir-2"},
		{"Café Détecteur", "cafe-detecteur"},
		{"--Garage--", "garage"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Voordeur", Normalize("Voordeur\x00\x00\x00"))
	assert.Equal(t, "Hal PIR", Normalize("  Hal PIR \x00 "))
	assert.Equal(t, "", Normalize("\x00\x00"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"arm", "disarm"}, "arm"))
	assert.False(t, Contains([]string{"arm", "disarm"}, "reset"))
	assert.False(t, Contains(nil, "arm"))
}
