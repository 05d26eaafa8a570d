package unii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0x0000},
		{"single byte", []byte("A"), 0x58E5},
		{"check sequence", []byte("123456789"), 0x31C3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CRC16(tt.data))
		})
	}
}

func TestCRC16BitFlip(t *testing.T) {
	data := []byte("123456789")
	flipped := append([]byte{}, data...)
	flipped[4] ^= 0x01

	assert.NotEqual(t, CRC16(data), CRC16(flipped))
}
