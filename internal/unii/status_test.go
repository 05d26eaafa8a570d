package unii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantStandard, v)

	v, err = ParseVariant("Standard")
	require.NoError(t, err)
	assert.Equal(t, VariantStandard, v)

	v, err = ParseVariant("legacy")
	require.NoError(t, err)
	assert.Equal(t, VariantLegacy, v)

	_, err = ParseVariant("modern")
	assert.Error(t, err)
}

func TestDecodeSectionStatus(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		data    []byte
		want    map[int]SectionState
	}{
		{
			name:    "standard skips version byte",
			variant: VariantStandard,
			data:    []byte{0x00, 0x01, 0x02, 0x02, 0x03},
			want:    map[int]SectionState{1: SectionStateDisarmedAlt, 2: SectionStateExitTimer},
		},
		{
			name:    "legacy pairs from start",
			variant: VariantLegacy,
			data:    []byte{0x01, 0x02, 0x02, 0x03},
			want:    map[int]SectionState{1: SectionStateDisarmedAlt, 2: SectionStateExitTimer},
		},
		{
			name:    "zero section ids skipped",
			variant: VariantStandard,
			data:    []byte{0x00, 0x00, 0x05, 0x01, 0x01},
			want:    map[int]SectionState{1: SectionStateArmed},
		},
		{
			name:    "trailing odd byte ignored",
			variant: VariantLegacy,
			data:    []byte{0x01, 0x01, 0x02},
			want:    map[int]SectionState{1: SectionStateArmed},
		},
		{
			name:    "empty",
			variant: VariantStandard,
			data:    nil,
			want:    map[int]SectionState{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeSectionStatus(tt.variant, tt.data))
		})
	}
}

func TestDecodeInputStatus(t *testing.T) {
	t.Run("standard indexes after header", func(t *testing.T) {
		data := []byte{0x00, 0x00, 0x11, 0x00, 0x41, 0x0F}
		got := decodeInputStatus(VariantStandard, data)

		require.Len(t, got, 4)
		assert.True(t, got[1].Open())
		assert.True(t, got[1].Bypassed())
		assert.False(t, got[2].Open())
		assert.True(t, got[3].Open())
		assert.True(t, got[3].LowBattery())
		assert.True(t, got[4].Disabled())
	})

	t.Run("legacy id value pairs", func(t *testing.T) {
		data := []byte{0x01, 0x11, 0x00, 0x22, 0x05, 0x02}
		got := decodeInputStatus(VariantLegacy, data)

		require.Len(t, got, 2)
		assert.Equal(t, InputStatus(0x11), got[1])
		assert.True(t, got[5].Tamper())
	})
}

func arrangementBlockData(names ...string) []byte {
	data := make([]byte, arrangementDataOffset, arrangementDataOffset+len(names)*arrangementRecordLen)
	for _, name := range names {
		rec := make([]byte, arrangementRecordLen)
		rec[1] = byte(SensorTypeBurglary)
		rec[2] = 0x01
		copy(rec[3:19], name)
		data = append(data, rec...)
	}
	return data
}

func TestDecodeArrangementBlock(t *testing.T) {
	t.Run("numbers follow block and ordinal", func(t *testing.T) {
		inputs, records := decodeArrangementBlock(2, arrangementBlockData("Voordeur", "Achterdeur"))

		assert.Equal(t, 2, records)
		require.Len(t, inputs, 2)
		assert.Equal(t, 45, inputs[0].Number)
		assert.Equal(t, "Voordeur", inputs[0].Name)
		assert.Equal(t, SensorTypeBurglary, inputs[0].SensorType)
		assert.Equal(t, 46, inputs[1].Number)
		assert.Equal(t, "Achterdeur", inputs[1].Name)
	})

	t.Run("placeholders counted but not returned", func(t *testing.T) {
		inputs, records := decodeArrangementBlock(1, arrangementBlockData("VRIJE TEKST 003", "Keuken", ""))

		assert.Equal(t, 3, records)
		require.Len(t, inputs, 1)
		assert.Equal(t, "Keuken", inputs[0].Name)
		assert.Equal(t, 2, inputs[0].Number)
	})

	t.Run("empty block", func(t *testing.T) {
		inputs, records := decodeArrangementBlock(1, []byte{0x00, 0x01, 0x00})
		assert.Nil(t, inputs)
		assert.Zero(t, records)
	})

	t.Run("short data", func(t *testing.T) {
		inputs, records := decodeArrangementBlock(1, []byte{0x00})
		assert.Nil(t, inputs)
		assert.Zero(t, records)
	})

	t.Run("invalid utf8 replaced", func(t *testing.T) {
		data := arrangementBlockData("Hal")
		data[arrangementDataOffset+4] = 0xFE

		inputs, records := decodeArrangementBlock(1, data)
		assert.Equal(t, 1, records)
		require.Len(t, inputs, 1)
		assert.Equal(t, "H�l", inputs[0].Name)
	})
}

func TestControlPayloads(t *testing.T) {
	payload, err := controlSectionPayload("1234", 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x12, 0x34, 0, 0, 0, 0, 0, 0, 0x02, 0x01}, payload)

	payload, err = controlInputPayload("1234", 300)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x12, 0x34, 0, 0, 0, 0, 0, 0, 0x01, 0x2C}, payload)

	_, err = controlSectionPayload("12x4", 1)
	assert.Error(t, err)
}

func TestRequestPayloads(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF}, sectionStatusPayload())
	assert.Equal(t, []byte{0x02}, inputStatusPayload())
	assert.Equal(t, []byte{0x00, 0x03}, arrangementPayload(3))
	assert.Equal(t, []byte{0x00, 0x64}, arrangementPayload(100))
}
